package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/dataset-cache/internal/cache"
	"github.com/any-hub/dataset-cache/internal/config"
	"github.com/any-hub/dataset-cache/internal/fetcher"
	"github.com/any-hub/dataset-cache/internal/hub"
	"github.com/any-hub/dataset-cache/internal/logging"
	"github.com/any-hub/dataset-cache/internal/server"
	"github.com/any-hub/dataset-cache/internal/server/routes"
	"github.com/any-hub/dataset-cache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	datasetName string
	folderName  string
	serve       bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
// 单次拉取无论成功与否都返回 0，失败只体现在日志中。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stdErr, "配置校验失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	// CLI 启动遵循“配置 → 日志 → Hub 客户端 → Fetcher”顺序，serve 模式再挂载 Fiber。
	httpClient := hub.NewUpstreamClient(cfg)
	hubClient := hub.NewClient(httpClient, logger, cfg.Hub)
	datasetFetcher := fetcher.New(hubClient, logger)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["dataset"] = cfg.Global.DatasetName
	fields["folder"] = cfg.Global.FolderName
	fields["auth_mode"] = cfg.Hub.AuthMode()
	fields["version"] = version.Full()
	logger.WithFields(fields).Debug("配置加载完成")

	if opts.serve {
		if err := startHTTPServer(cfg, datasetFetcher, logger); err != nil {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := datasetFetcher.Fetch(ctx, cfg.Global.DatasetName, cfg.Global.FolderName)
	logger.WithFields(logrus.Fields{
		"action":  "done",
		"dataset": cfg.Global.DatasetName,
		"result":  string(result.Kind),
	}).Debug("执行结束")
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("dataset-cache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag  string
		datasetName string
		folderName  string
		serve       bool
		showVer     bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（可被 DATASET_CACHE_CONFIG 指定）")
	fs.StringVar(&datasetName, "dataset_name", config.DefaultDatasetName, "要下载的数据集标识，例如 namespace/name")
	fs.StringVar(&folderName, "folder_name", config.DefaultFolderName, "本地缓存目录")
	fs.BoolVar(&serve, "serve", false, "以 HTTP 服务方式运行（需配置 ListenPort）")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("不支持的参数: %v", fs.Args())
	}

	opts := cliOptions{
		configPath:  os.Getenv("DATASET_CACHE_CONFIG"),
		serve:       serve,
		showVersion: showVer,
	}
	if configFlag != "" {
		opts.configPath = configFlag
	}

	// 只有显式传入的标志才覆盖配置文件。
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dataset_name":
			opts.datasetName = datasetName
		case "folder_name":
			opts.folderName = folderName
		}
	})
	return opts, nil
}

func applyOverrides(cfg *config.Config, opts cliOptions) {
	if opts.datasetName != "" {
		cfg.Global.DatasetName = opts.datasetName
	}
	if opts.folderName != "" {
		cfg.Global.FolderName = opts.folderName
	}
}

func startHTTPServer(cfg *config.Config, datasetFetcher *fetcher.Fetcher, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	store, err := cache.NewStore(cfg.Global.FolderName)
	if err != nil {
		return fmt.Errorf("初始化缓存目录失败: %w", err)
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Fetcher:    datasetFetcher,
		Store:      store,
		BaseFolder: cfg.Global.FolderName,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticsRoutes(app, store)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
		"folder": cfg.Global.FolderName,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
