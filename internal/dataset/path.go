package dataset

import (
	"path/filepath"
	"strings"
)

// CacheDirName 将标识中的 "/" 替换为 "_"，得到缓存目录名。
func CacheDirName(identifier string) string {
	return strings.ReplaceAll(identifier, "/", "_")
}

// CachePath 返回 baseFolder 下该数据集的缓存目录，相同输入总是得到相同路径。
func CachePath(baseFolder, identifier string) string {
	return filepath.Join(baseFolder, CacheDirName(identifier))
}
