package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// hubStub 模拟 Hub API 与 datasets-server，记录每次请求便于断言。
type hubStub struct {
	server *httptest.Server
	URL    string

	mu       sync.Mutex
	requests []*http.Request

	infoStatus int
	configs    map[string]map[string][]map[string]any // config -> split -> rows
}

func newHubStub(t *testing.T) *hubStub {
	t.Helper()

	stub := &hubStub{
		infoStatus: http.StatusOK,
		configs: map[string]map[string][]map[string]any{
			"default": {
				"train": makeRows(5, "train"),
				"test":  makeRows(2, "test"),
			},
			"extra": {
				"train": makeRows(1, "extra"),
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/datasets/", stub.handleInfo)
	mux.HandleFunc("/splits", stub.handleSplits)
	mux.HandleFunc("/rows", stub.handleRows)

	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.requests = append(stub.requests, r.Clone(r.Context()))
		stub.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	stub.URL = stub.server.URL
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *hubStub) handleInfo(w http.ResponseWriter, r *http.Request) {
	if s.infoStatus != http.StatusOK {
		w.WriteHeader(s.infoStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Repository not found"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":  r.URL.Path[len("/api/datasets/"):],
		"sha": "abc123",
	})
}

func (s *hubStub) handleSplits(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("dataset")
	var splits []map[string]string
	for _, configName := range []string{"default", "extra"} {
		for _, split := range []string{"train", "test"} {
			if _, ok := s.configs[configName][split]; !ok {
				continue
			}
			splits = append(splits, map[string]string{"dataset": name, "config": configName, "split": split})
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"splits": splits})
}

func (s *hubStub) handleRows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, ok := s.configs[q.Get("config")][q.Get("split")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	length, _ := strconv.Atoi(q.Get("length"))
	end := offset + length
	if end > len(rows) {
		end = len(rows)
	}
	if offset > end {
		offset = end
	}

	items := make([]map[string]any, 0, end-offset)
	for i := offset; i < end; i++ {
		items = append(items, map[string]any{"row_idx": i, "row": rows[i], "truncated_cells": []string{}})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"features": []map[string]any{
			{"feature_idx": 1, "name": "idx", "type": map[string]string{"dtype": "int64", "_type": "Value"}},
			{"feature_idx": 0, "name": "text", "type": map[string]string{"dtype": "string", "_type": "Value"}},
		},
		"rows":           items,
		"num_rows_total": len(rows),
	})
}

// Requests 返回指定路径被请求的次数。
func (s *hubStub) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, req := range s.requests {
		if req.URL.Path == path {
			count++
		}
	}
	return count
}

func (s *hubStub) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func makeRows(n int, prefix string) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"text": prefix + "-" + strconv.Itoa(i), "idx": i}
	}
	return rows
}
