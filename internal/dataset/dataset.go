package dataset

import (
	"encoding/json"
	"errors"
	"sort"
)

// ErrNotFound 表示远端 Hub 上不存在（或无权访问）该数据集。
var ErrNotFound = errors.New("dataset not found")

// Row 是一条表格记录，数字保持 json.Number 以免精度丢失。
type Row map[string]any

// Feature 描述一列的名称与 Hub 给出的类型定义（原样保留）。
type Feature struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type,omitempty"`
}

// Split 是数据集中的一个命名分片，例如 train/test。
type Split struct {
	Name     string
	Features []Feature
	Rows     []Row
}

// NumRows 返回分片行数。
func (s *Split) NumRows() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Dataset 是下载或从缓存加载后的只读句柄。
type Dataset struct {
	Name     string
	Config   string
	Revision string
	Splits   map[string]*Split
}

// New 创建空数据集，调用方随后通过 AddSplit 填充。
func New(name, configName, revision string) *Dataset {
	return &Dataset{
		Name:     name,
		Config:   configName,
		Revision: revision,
		Splits:   make(map[string]*Split),
	}
}

// AddSplit 注册一个分片，同名分片会被覆盖。
func (d *Dataset) AddSplit(split *Split) {
	if d.Splits == nil {
		d.Splits = make(map[string]*Split)
	}
	d.Splits[split.Name] = split
}

// Split 按名称查找分片。
func (d *Dataset) Split(name string) (*Split, bool) {
	if d == nil {
		return nil, false
	}
	split, ok := d.Splits[name]
	return split, ok
}

// SplitNames 返回按名称排序的分片列表。
func (d *Dataset) SplitNames() []string {
	if d == nil || len(d.Splits) == 0 {
		return nil
	}
	names := make([]string, 0, len(d.Splits))
	for name := range d.Splits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumRows 返回所有分片的总行数。
func (d *Dataset) NumRows() int {
	if d == nil {
		return 0
	}
	total := 0
	for _, split := range d.Splits {
		total += split.NumRows()
	}
	return total
}
