package fetcher

import "github.com/any-hub/dataset-cache/internal/dataset"

// Kind 描述一次 Fetch 的结果类别。
type Kind string

const (
	KindCacheHit   Kind = "cache_hit"
	KindDownloaded Kind = "downloaded"
	KindNotFound   Kind = "not_found"
	KindOtherError Kind = "error"
)

// Result 汇总 Fetch 的产出；Dataset 为 nil 即表示“没有结果”。
type Result struct {
	Dataset *dataset.Dataset
	Kind    Kind
	Path    string
	Err     error
}

// OK 表示拿到了可用的数据集（命中缓存或下载成功）。
func (r Result) OK() bool {
	return r.Dataset != nil && (r.Kind == KindCacheHit || r.Kind == KindDownloaded)
}
