package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/dataset-cache/internal/cache"
	"github.com/any-hub/dataset-cache/internal/dataset"
	"github.com/any-hub/dataset-cache/internal/logging"
)

// DefaultBaseFolder 与原脚本默认值一致。
const DefaultBaseFolder = "./datasets"

// Remote 是远端数据集来源，hub.Client 即其实现；测试中可注入假实现。
type Remote interface {
	FetchDataset(ctx context.Context, identifier string) (*dataset.Dataset, error)
}

// StoreFactory 根据 base 目录创建缓存；默认使用 cache.NewStore（会创建目录）。
type StoreFactory func(baseFolder string) (cache.Store, error)

// Fetcher 负责“命中缓存 → 直接加载 / 未命中 → 下载并落盘”的全流程。
type Fetcher struct {
	remote   Remote
	logger   *logrus.Logger
	newStore StoreFactory
}

// Option 调整 Fetcher 的可选依赖。
type Option func(*Fetcher)

// WithStoreFactory 替换缓存构造函数。
func WithStoreFactory(factory StoreFactory) Option {
	return func(f *Fetcher) {
		if factory != nil {
			f.newStore = factory
		}
	}
}

// New 构造 Fetcher；logger 为空时丢弃日志。
func New(remote Remote, logger *logrus.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = logging.Discard()
	}
	f := &Fetcher{
		remote:   remote,
		logger:   logger,
		newStore: cache.NewStore,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch 返回 identifier 对应的数据集。每次调用都会先确保 baseFolder 存在；
// 任何失败都只记录日志并体现在 Result.Kind 中，不会向上传播。
func (f *Fetcher) Fetch(ctx context.Context, identifier, baseFolder string) Result {
	if baseFolder == "" {
		baseFolder = DefaultBaseFolder
	}
	path := dataset.CachePath(baseFolder, identifier)

	store, err := f.newStore(baseFolder)
	if err != nil {
		return f.fail(identifier, path, fmt.Errorf("准备缓存目录失败: %w", err))
	}
	path = store.Path(identifier)

	hit, err := store.Exists(ctx, identifier)
	if err != nil {
		return f.fail(identifier, path, fmt.Errorf("检查缓存失败: %w", err))
	}
	if hit {
		f.logger.WithFields(logging.DatasetFields("cache_hit", identifier, path)).
			Infof("从 %s 加载已缓存的数据集 '%s'", path, identifier)
		ds, err := store.Load(ctx, identifier)
		if err != nil {
			return f.fail(identifier, path, fmt.Errorf("加载缓存失败: %w", err))
		}
		return Result{Dataset: ds, Kind: KindCacheHit, Path: path}
	}

	f.logger.WithFields(logging.DatasetFields("download", identifier, path)).
		Infof("正在下载数据集 '%s'...", identifier)
	if f.remote == nil {
		return f.fail(identifier, path, errors.New("未配置远端数据源"))
	}
	ds, err := f.remote.FetchDataset(ctx, identifier)
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			f.logger.WithError(err).
				WithFields(logging.DatasetFields("download", identifier, path)).
				WithField("result", string(KindNotFound)).
				Errorf("数据集 '%s' 不存在", identifier)
			return Result{Kind: KindNotFound, Path: path, Err: err}
		}
		return f.fail(identifier, path, err)
	}

	if _, err := store.Save(ctx, identifier, ds); err != nil {
		return f.fail(identifier, path, fmt.Errorf("保存数据集失败: %w", err))
	}
	f.logger.WithFields(logging.DatasetFields("save", identifier, path)).
		WithField("rows", ds.NumRows()).
		Infof("数据集已保存到 %s", path)
	return Result{Dataset: ds, Kind: KindDownloaded, Path: path}
}

func (f *Fetcher) fail(identifier, path string, err error) Result {
	f.logger.WithFields(logging.DatasetFields("fetch", identifier, path)).
		WithField("result", string(KindOtherError)).
		Errorf("错误: %v", err)
	return Result{Kind: KindOtherError, Path: path, Err: err}
}
