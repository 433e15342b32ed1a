package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// 默认值与原脚本保持一致：示例数据集 + ./datasets 目录。
const (
	DefaultDatasetName    = "Trelis/tiny-shakespeare"
	DefaultFolderName     = "datasets"
	DefaultHubEndpoint    = "https://huggingface.co"
	DefaultServerEndpoint = "https://datasets-server.huggingface.co"
	DefaultPageSize       = 100
	MaxPageSize           = 100
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
// path 为空时只使用默认值与环境变量，不要求配置文件存在。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyHubDefaults(&cfg.Hub)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("DatasetName", DefaultDatasetName)
	v.SetDefault("FolderName", DefaultFolderName)
	v.SetDefault("ListenPort", 0)
	v.SetDefault("Hub.Endpoint", DefaultHubEndpoint)
	v.SetDefault("Hub.ServerEndpoint", DefaultServerEndpoint)
	v.SetDefault("Hub.Token", "")
	v.SetDefault("Hub.Subset", "")
	v.SetDefault("Hub.PageSize", DefaultPageSize)
	v.SetDefault("Hub.UpstreamTimeout", "30s")
}

// bindEnv 让常见的 Hub 环境变量覆盖配置文件。
func bindEnv(v *viper.Viper) error {
	if err := v.BindEnv("Hub.Token", "HF_TOKEN"); err != nil {
		return err
	}
	return v.BindEnv("Hub.Endpoint", "HF_ENDPOINT")
}

func applyGlobalDefaults(g *GlobalConfig) {
	g.LogFormat = strings.ToLower(strings.TrimSpace(g.LogFormat))
	if g.LogFormat == "" {
		g.LogFormat = "text"
	}
	if strings.TrimSpace(g.DatasetName) == "" {
		g.DatasetName = DefaultDatasetName
	}
}

func applyHubDefaults(h *HubConfig) {
	h.Endpoint = strings.TrimRight(strings.TrimSpace(h.Endpoint), "/")
	h.ServerEndpoint = strings.TrimRight(strings.TrimSpace(h.ServerEndpoint), "/")
	h.Subset = strings.TrimSpace(h.Subset)
	if h.PageSize == 0 {
		h.PageSize = DefaultPageSize
	}
	if h.UpstreamTimeout.DurationValue() == 0 {
		h.UpstreamTimeout = Duration(30 * time.Second)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
