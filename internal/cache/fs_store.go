package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/any-hub/dataset-cache/internal/dataset"
)

// NewStore 以 basePath 为根目录构建磁盘缓存；目录不存在时会被创建。
func NewStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return NewStoreFS(osfs.New(abs), abs), nil
}

// NewStoreFS 基于任意 billy 文件系统构建缓存，root 仅用于拼接对外展示的路径。
func NewStoreFS(fsys billy.Filesystem, root string) Store {
	return &fileStore{
		basePath: root,
		fs:       fsys,
		now:      time.Now,
	}
}

// fileStore 的所有路径都相对于 fs 的根，即缓存 base 目录。
type fileStore struct {
	basePath string
	fs       billy.Filesystem
	now      func() time.Time
}

func (s *fileStore) Path(identifier string) string {
	return dataset.CachePath(s.basePath, identifier)
}

func (s *fileStore) Exists(ctx context.Context, identifier string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	name := dataset.CacheDirName(identifier)
	info, err := s.fs.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if !info.IsDir() {
		return false, nil
	}

	entries, err := s.fs.ReadDir(name)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

func (s *fileStore) Load(ctx context.Context, identifier string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := dataset.CacheDirName(identifier)
	var dict dictFile
	if err := s.readJSON(s.fs.Join(name, dictFileName), &dict); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", dictFileName, err)
	}

	ds := dataset.New(dict.Name, dict.Config, dict.Revision)
	if ds.Name == "" {
		ds.Name = identifier
	}
	for _, splitName := range dict.Splits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		split, err := s.loadSplit(s.fs.Join(name, splitDirName(splitName)), splitName)
		if err != nil {
			return nil, fmt.Errorf("load split %s: %w", splitName, err)
		}
		ds.AddSplit(split)
	}
	return ds, nil
}

func (s *fileStore) Save(ctx context.Context, identifier string, ds *dataset.Dataset) (*Entry, error) {
	if ds == nil {
		return nil, errors.New("dataset required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tempDir, err := util.TempDir(s.fs, ".", tempDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	savedAt := s.now().UTC()
	if err := s.writeDataset(ctx, tempDir, ds, savedAt); err != nil {
		_ = util.RemoveAll(s.fs, tempDir)
		return nil, err
	}

	name := dataset.CacheDirName(identifier)
	if err := util.RemoveAll(s.fs, name); err != nil {
		_ = util.RemoveAll(s.fs, tempDir)
		return nil, fmt.Errorf("clear cache dir: %w", err)
	}
	if err := s.fs.Rename(tempDir, name); err != nil {
		_ = util.RemoveAll(s.fs, tempDir)
		return nil, fmt.Errorf("rename cache dir: %w", err)
	}

	return &Entry{
		Identifier: ds.Name,
		Key:        name,
		Dir:        s.Path(identifier),
		Config:     ds.Config,
		Revision:   ds.Revision,
		Splits:     ds.SplitNames(),
		NumRows:    ds.NumRows(),
		SavedAt:    savedAt,
	}, nil
}

func (s *fileStore) Remove(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return util.RemoveAll(s.fs, dataset.CacheDirName(identifier))
}

func (s *fileStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := s.fs.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, info := range infos {
		if !info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		entry, ok := s.describe(info.Name())
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

// describe 读取目录中的元数据；缺少 dataset_dict.json 的目录不视为缓存条目。
func (s *fileStore) describe(key string) (Entry, bool) {
	var dict dictFile
	if err := s.readJSON(s.fs.Join(key, dictFileName), &dict); err != nil {
		return Entry{}, false
	}

	total := 0
	for _, splitName := range dict.Splits {
		var info splitInfoFile
		if err := s.readJSON(s.fs.Join(key, splitDirName(splitName), infoFileName), &info); err == nil {
			total += info.NumRows
		}
	}

	splits := append([]string(nil), dict.Splits...)
	sort.Strings(splits)
	return Entry{
		Identifier: dict.Name,
		Key:        key,
		Dir:        filepath.Join(s.basePath, key),
		Config:     dict.Config,
		Revision:   dict.Revision,
		Splits:     splits,
		NumRows:    total,
		SavedAt:    dict.SavedAt,
	}, true
}

func (s *fileStore) writeDataset(ctx context.Context, dir string, ds *dataset.Dataset, savedAt time.Time) error {
	names := ds.SplitNames()
	for _, splitName := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		split, _ := ds.Split(splitName)
		if err := s.writeSplit(s.fs.Join(dir, splitDirName(splitName)), split); err != nil {
			return fmt.Errorf("write split %s: %w", splitName, err)
		}
	}

	dict := dictFile{
		Name:     ds.Name,
		Config:   ds.Config,
		Revision: ds.Revision,
		Splits:   names,
		SavedAt:  savedAt,
	}
	if dict.Splits == nil {
		dict.Splits = []string{}
	}
	return s.writeJSON(s.fs.Join(dir, dictFileName), dict)
}

func (s *fileStore) writeSplit(dir string, split *dataset.Split) error {
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	info := splitInfoFile{
		Split:    split.Name,
		Features: split.Features,
		NumRows:  split.NumRows(),
	}
	if info.Features == nil {
		info.Features = []dataset.Feature{}
	}
	if err := s.writeJSON(s.fs.Join(dir, infoFileName), info); err != nil {
		return err
	}

	f, err := s.fs.Create(s.fs.Join(dir, dataFileName))
	if err != nil {
		return err
	}
	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	for _, row := range split.Rows {
		if err := enc.Encode(row); err != nil {
			f.Close()
			return err
		}
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *fileStore) loadSplit(dir, splitName string) (*dataset.Split, error) {
	var info splitInfoFile
	if err := s.readJSON(s.fs.Join(dir, infoFileName), &info); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(s.fs.Join(dir, dataFileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows := make([]dataset.Row, 0, info.NumRows)
	dec := json.NewDecoder(bufio.NewReader(f))
	dec.UseNumber()
	for {
		var row dataset.Row
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		rows = append(rows, row)
	}

	return &dataset.Split{
		Name:     splitName,
		Features: info.Features,
		Rows:     rows,
	}, nil
}

func (s *fileStore) readJSON(name string, v any) error {
	data, err := util.ReadFile(s.fs, name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *fileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteFile(s.fs, name, data, 0o644)
}

func splitDirName(split string) string {
	return dataset.CacheDirName(split)
}
