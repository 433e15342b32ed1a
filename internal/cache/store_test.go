package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/any-hub/dataset-cache/internal/dataset"
)

func TestStoreSaveAndLoad(t *testing.T) {
	store, base := newTestStore(t)
	ctx := context.Background()

	entry, err := store.Save(ctx, "org/data", sampleDataset())
	if err != nil {
		t.Fatalf("save error: %v", err)
	}
	if entry.Dir != filepath.Join(base, "org_data") {
		t.Fatalf("unexpected cache dir: %s", entry.Dir)
	}
	if entry.NumRows != 3 {
		t.Fatalf("expected 3 rows, got %d", entry.NumRows)
	}
	for _, name := range []string{dictFileName, "train/" + dataFileName, "test/" + infoFileName} {
		if _, err := os.Stat(filepath.Join(base, "org_data", filepath.FromSlash(name))); err != nil {
			t.Fatalf("expected %s on disk: %v", name, err)
		}
	}

	loaded, err := store.Load(ctx, "org/data")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if loaded.Name != "org/data" || loaded.Config != "default" || loaded.Revision != "abc123" {
		t.Fatalf("metadata mismatch: %+v", loaded)
	}
	if !reflect.DeepEqual(loaded.SplitNames(), []string{"test", "train"}) {
		t.Fatalf("split mismatch: %v", loaded.SplitNames())
	}
	train, _ := loaded.Split("train")
	if train.NumRows() != 2 {
		t.Fatalf("expected 2 train rows, got %d", train.NumRows())
	}
	if train.Rows[1]["text"] != "second" {
		t.Fatalf("row mismatch: %v", train.Rows[1])
	}
	if n, ok := train.Rows[1]["n"].(json.Number); !ok || n.String() != "2" {
		t.Fatalf("numbers should load as json.Number, got %#v", train.Rows[1]["n"])
	}
	if len(train.Features) != 2 || train.Features[0].Name != "text" {
		t.Fatalf("features mismatch: %+v", train.Features)
	}
}

func TestStoreSaveLeavesNoTempDirs(t *testing.T) {
	store, base := newTestStore(t)
	if _, err := store.Save(context.Background(), "org/data", sampleDataset()); err != nil {
		t.Fatalf("save error: %v", err)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatalf("read base dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), tempDirPrefix) {
			t.Fatalf("temp dir left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected only org_data, got %d entries", len(entries))
	}
}

func TestStoreSaveReplacesEmptyDir(t *testing.T) {
	store, base := newTestStore(t)
	if err := os.MkdirAll(filepath.Join(base, "org_data"), 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	if _, err := store.Save(context.Background(), "org/data", sampleDataset()); err != nil {
		t.Fatalf("save over empty dir error: %v", err)
	}
	ok, err := store.Exists(context.Background(), "org/data")
	if err != nil || !ok {
		t.Fatalf("expected populated cache, ok=%v err=%v", ok, err)
	}
}

func TestStoreExistsRequiresNonEmptyDir(t *testing.T) {
	store, base := newTestStore(t)
	ctx := context.Background()

	if ok, err := store.Exists(ctx, "org/data"); err != nil || ok {
		t.Fatalf("missing dir should not exist, ok=%v err=%v", ok, err)
	}

	dir := filepath.Join(base, "org_data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	if ok, err := store.Exists(ctx, "org/data"); err != nil || ok {
		t.Fatalf("empty dir should count as miss, ok=%v err=%v", ok, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "anything"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if ok, err := store.Exists(ctx, "org/data"); err != nil || !ok {
		t.Fatalf("non-empty dir should count as hit, ok=%v err=%v", ok, err)
	}
}

func TestStoreExistsOnMemFS(t *testing.T) {
	fsys := memfs.New()
	store := NewStoreFS(fsys, "/datasets")
	ctx := context.Background()

	if err := fsys.MkdirAll("org_data", 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	if ok, _ := store.Exists(ctx, "org/data"); ok {
		t.Fatalf("empty in-memory dir should be a miss")
	}
	if err := util.WriteFile(fsys, "org_data/marker", []byte("x"), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if ok, _ := store.Exists(ctx, "org/data"); !ok {
		t.Fatalf("populated in-memory dir should be a hit")
	}
	if got := store.Path("org/data"); got != filepath.Join("/datasets", "org_data") {
		t.Fatalf("unexpected path: %s", got)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load(context.Background(), "org/missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store, base := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Save(ctx, "org/data", sampleDataset()); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if err := store.Remove(ctx, "org/data"); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "org_data")); !os.IsNotExist(err) {
		t.Fatalf("expected cache dir removed, got %v", err)
	}
	if err := store.Remove(ctx, "org/data"); err != nil {
		t.Fatalf("removing twice should succeed: %v", err)
	}
}

func TestStoreListSkipsForeignDirs(t *testing.T) {
	store, base := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Save(ctx, "org/data", sampleDataset()); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if _, err := store.Save(ctx, "plain", dataset.New("plain", "", "")); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(base, "not-a-dataset"), 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(base, ".hidden"), 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Key != "org_data" || entries[0].Identifier != "org/data" || entries[0].NumRows != 3 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Key != "plain" || entries[1].NumRows != 0 {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestNewStoreCreatesBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "datasets")
	if _, err := NewStore(base); err != nil {
		t.Fatalf("new store error: %v", err)
	}
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected base dir to be created: %v", err)
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Fatalf("empty path should fail")
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	base := t.TempDir()
	store, err := NewStore(base)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, base
}

func sampleDataset() *dataset.Dataset {
	features := []dataset.Feature{
		{Name: "text", Type: json.RawMessage(`{"dtype":"string","_type":"Value"}`)},
		{Name: "n", Type: json.RawMessage(`{"dtype":"int64","_type":"Value"}`)},
	}
	ds := dataset.New("org/data", "default", "abc123")
	ds.AddSplit(&dataset.Split{
		Name:     "train",
		Features: features,
		Rows: []dataset.Row{
			{"text": "first", "n": json.Number("1")},
			{"text": "second", "n": json.Number("2")},
		},
	})
	ds.AddSplit(&dataset.Split{
		Name:     "test",
		Features: features,
		Rows:     []dataset.Row{{"text": "third", "n": json.Number("3")}},
	})
	return ds
}
