package cache

import (
	"context"
	"errors"
	"time"

	"github.com/any-hub/dataset-cache/internal/dataset"
)

// Store 负责管理数据集磁盘缓存。磁盘布局遵循：
//
//	<base>/<sanitized-id>/dataset_dict.json         # 名称、子集、版本与分片列表
//	<base>/<sanitized-id>/<split>/dataset_info.json # 列定义与行数
//	<base>/<sanitized-id>/<split>/data.jsonl        # 每行一条记录
type Store interface {
	// Path 返回标识对应的缓存目录（绝对路径），不访问磁盘。
	Path(identifier string) string

	// Exists 判断缓存目录是否存在且非空，这是唯一的命中条件。
	Exists(ctx context.Context, identifier string) (bool, error)

	// Load 从缓存目录反序列化数据集。目录不存在时返回 ErrNotFound。
	Load(ctx context.Context, identifier string) (*dataset.Dataset, error)

	// Save 通过临时目录 + rename 写入数据集，失败时清理临时目录。
	Save(ctx context.Context, identifier string, ds *dataset.Dataset) (*Entry, error)

	// Remove 删除整个缓存目录，不存在时视为成功。
	Remove(ctx context.Context, identifier string) error

	// List 返回 base 下所有可识别的缓存条目，按目录名排序。
	List(ctx context.Context) ([]Entry, error)
}

// Entry 描述一个已缓存的数据集。
type Entry struct {
	Identifier string    `json:"identifier"`
	Key        string    `json:"key"`
	Dir        string    `json:"dir"`
	Config     string    `json:"config,omitempty"`
	Revision   string    `json:"revision,omitempty"`
	Splits     []string  `json:"splits"`
	NumRows    int       `json:"num_rows"`
	SavedAt    time.Time `json:"saved_at"`
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")

const (
	dictFileName  = "dataset_dict.json"
	infoFileName  = "dataset_info.json"
	dataFileName  = "data.jsonl"
	tempDirPrefix = ".cache-"
)

type dictFile struct {
	Name     string    `json:"name"`
	Config   string    `json:"config,omitempty"`
	Revision string    `json:"revision,omitempty"`
	Splits   []string  `json:"splits"`
	SavedAt  time.Time `json:"saved_at"`
}

type splitInfoFile struct {
	Split    string            `json:"split"`
	Features []dataset.Feature `json:"features"`
	NumRows  int               `json:"num_rows"`
}
