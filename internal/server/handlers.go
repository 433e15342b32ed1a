package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/dataset-cache/internal/cache"
	"github.com/any-hub/dataset-cache/internal/config"
	"github.com/any-hub/dataset-cache/internal/dataset"
	"github.com/any-hub/dataset-cache/internal/fetcher"
)

type handlers struct {
	logger     *logrus.Logger
	fetcher    DatasetFetcher
	store      cache.Store
	baseFolder string
}

type splitPayload struct {
	Name     string            `json:"name"`
	NumRows  int               `json:"num_rows"`
	Features []dataset.Feature `json:"features"`
}

type datasetPayload struct {
	Name     string         `json:"name"`
	Config   string         `json:"config,omitempty"`
	Revision string         `json:"revision,omitempty"`
	Kind     fetcher.Kind   `json:"kind,omitempty"`
	Path     string         `json:"path,omitempty"`
	NumRows  int            `json:"num_rows"`
	Splits   []splitPayload `json:"splits"`
}

type rowsPayload struct {
	Dataset string        `json:"dataset"`
	Split   string        `json:"split"`
	Offset  int           `json:"offset"`
	Length  int           `json:"length"`
	Total   int           `json:"num_rows_total"`
	Rows    []dataset.Row `json:"rows"`
}

// fetch 执行一次与 CLI 相同的缓存/下载决策，并把结果类别映射为状态码。
func (h *handlers) fetch(c fiber.Ctx) error {
	identifier := strings.TrimSpace(c.Query("dataset"))
	if identifier == "" {
		return renderError(c, fiber.StatusBadRequest, "dataset_required")
	}

	result := h.fetcher.Fetch(requestContext(c), identifier, h.baseFolder)
	h.logger.WithFields(logrus.Fields{
		"action":     "http_fetch",
		"dataset":    identifier,
		"result":     string(result.Kind),
		"request_id": RequestID(c),
	}).Info("HTTP 拉取请求完成")

	switch result.Kind {
	case fetcher.KindCacheHit, fetcher.KindDownloaded:
		payload := encodeDataset(result.Dataset)
		payload.Kind = result.Kind
		payload.Path = result.Path
		return c.JSON(payload)
	case fetcher.KindNotFound:
		return renderError(c, fiber.StatusNotFound, "dataset_not_found")
	default:
		return renderError(c, fiber.StatusBadGateway, "fetch_failed")
	}
}

// describe 返回已缓存数据集的概要，不触发下载。
func (h *handlers) describe(c fiber.Ctx) error {
	ds, err := h.store.Load(requestContext(c), c.Params("key"))
	if err != nil {
		return h.renderLoadError(c, err)
	}
	return c.JSON(encodeDataset(ds))
}

// rows 直接从缓存读取分片的一段记录。
func (h *handlers) rows(c fiber.Ctx) error {
	offset, err := parseNonNegative(c.Query("offset"), 0)
	if err != nil {
		return renderError(c, fiber.StatusBadRequest, "invalid_offset")
	}
	length, err := parseNonNegative(c.Query("length"), config.DefaultPageSize)
	if err != nil || length == 0 {
		return renderError(c, fiber.StatusBadRequest, "invalid_length")
	}
	if length > config.MaxPageSize {
		length = config.MaxPageSize
	}

	ds, err := h.store.Load(requestContext(c), c.Params("key"))
	if err != nil {
		return h.renderLoadError(c, err)
	}
	split, ok := ds.Split(c.Params("split"))
	if !ok {
		return renderError(c, fiber.StatusNotFound, "split_not_found")
	}

	total := split.NumRows()
	start := min(offset, total)
	end := min(start+length, total)
	return c.JSON(rowsPayload{
		Dataset: ds.Name,
		Split:   split.Name,
		Offset:  start,
		Length:  end - start,
		Total:   total,
		Rows:    split.Rows[start:end],
	})
}

func (h *handlers) renderLoadError(c fiber.Ctx, err error) error {
	if errors.Is(err, cache.ErrNotFound) {
		return renderError(c, fiber.StatusNotFound, "dataset_not_cached")
	}
	h.logger.WithError(err).
		WithFields(logrus.Fields{"action": "cache_load", "key": c.Params("key"), "request_id": RequestID(c)}).
		Warn("cache_load_failed")
	return renderError(c, fiber.StatusInternalServerError, "cache_load_failed")
}

func encodeDataset(ds *dataset.Dataset) datasetPayload {
	payload := datasetPayload{
		Name:     ds.Name,
		Config:   ds.Config,
		Revision: ds.Revision,
		NumRows:  ds.NumRows(),
		Splits:   make([]splitPayload, 0, len(ds.Splits)),
	}
	for _, name := range ds.SplitNames() {
		split, _ := ds.Split(name)
		payload.Splits = append(payload.Splits, splitPayload{
			Name:     name,
			NumRows:  split.NumRows(),
			Features: split.Features,
		})
	}
	return payload
}

func parseNonNegative(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, errors.New("negative value")
	}
	return value, nil
}
