package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/dataset-cache/internal/config"
	"github.com/any-hub/dataset-cache/internal/dataset"
	"github.com/any-hub/dataset-cache/internal/logging"
	"github.com/any-hub/dataset-cache/internal/version"
)

const defaultConfigName = "default"

// StatusError 表示 Hub 返回了非预期的状态码（未被识别为 NotFound）。
type StatusError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s 返回 %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s 返回 %d: %s", e.URL, e.StatusCode, e.Message)
}

// Client 封装 Hub API 与 datasets-server API 的访问。
type Client struct {
	http   *http.Client
	logger *logrus.Logger
	cfg    config.HubConfig
}

// NewClient 使用共享 http.Client 构造 Hub 客户端。
func NewClient(httpClient *http.Client, logger *logrus.Logger, cfg config.HubConfig) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.PageSize <= 0 || cfg.PageSize > config.MaxPageSize {
		cfg.PageSize = config.DefaultPageSize
	}
	return &Client{
		http:   httpClient,
		logger: logger,
		cfg:    cfg,
	}
}

// Info 查询数据集元数据，用于确认数据集存在并取得版本号。
func (c *Client) Info(ctx context.Context, identifier string) (*DatasetInfo, error) {
	rawURL := c.cfg.Endpoint + "/api/datasets/" + escapeIdentifier(identifier)
	var info DatasetInfo
	if err := c.getJSON(ctx, rawURL, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Splits 列出数据集全部 config/split 组合。
func (c *Client) Splits(ctx context.Context, identifier string) ([]SplitRef, error) {
	query := url.Values{"dataset": {identifier}}
	rawURL := c.cfg.ServerEndpoint + "/splits?" + query.Encode()
	var resp splitsResponse
	if err := c.getJSON(ctx, rawURL, &resp); err != nil {
		return nil, err
	}
	return resp.Splits, nil
}

// Rows 读取某个分片从 offset 开始的一页记录。
func (c *Client) Rows(ctx context.Context, identifier, configName, split string, offset, length int) (*RowsPage, error) {
	query := url.Values{
		"dataset": {identifier},
		"config":  {configName},
		"split":   {split},
		"offset":  {strconv.Itoa(offset)},
		"length":  {strconv.Itoa(length)},
	}
	rawURL := c.cfg.ServerEndpoint + "/rows?" + query.Encode()
	var page RowsPage
	if err := c.getJSON(ctx, rawURL, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchDataset 下载数据集选定子集的全部分片。数据集不存在时返回的错误满足
// errors.Is(err, dataset.ErrNotFound)。
func (c *Client) FetchDataset(ctx context.Context, identifier string) (*dataset.Dataset, error) {
	info, err := c.Info(ctx, identifier)
	if err != nil {
		return nil, err
	}

	refs, err := c.Splits(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("数据集 %s 没有可用分片", identifier)
	}

	configName, err := pickConfig(refs, c.cfg.Subset)
	if err != nil {
		return nil, err
	}

	ds := dataset.New(identifier, configName, info.SHA)
	for _, ref := range refs {
		if ref.Config != configName {
			continue
		}
		split, err := c.fetchSplit(ctx, identifier, configName, ref.Split)
		if err != nil {
			return nil, fmt.Errorf("下载分片 %s 失败: %w", ref.Split, err)
		}
		ds.AddSplit(split)
	}
	return ds, nil
}

func (c *Client) fetchSplit(ctx context.Context, identifier, configName, name string) (*dataset.Split, error) {
	split := &dataset.Split{Name: name}
	offset := 0
	for {
		page, err := c.Rows(ctx, identifier, configName, name, offset, c.cfg.PageSize)
		if err != nil {
			return nil, err
		}
		if split.Features == nil {
			split.Features = convertFeatures(page.Features)
		}
		for _, item := range page.Rows {
			split.Rows = append(split.Rows, item.Row)
		}
		offset += len(page.Rows)
		if len(page.Rows) == 0 || offset >= page.NumRowsTotal {
			break
		}
	}

	c.logger.WithFields(logrus.Fields{
		"action":  "split_fetched",
		"dataset": identifier,
		"config":  configName,
		"split":   name,
		"rows":    len(split.Rows),
	}).Debug("分片下载完成")
	return split, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent())
	if c.cfg.HasToken() {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.Token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", rawURL, err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logging.UpstreamFields(rawURL, resp.StatusCode, c.cfg.AuthMode())).Debug("upstream_response")

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s 返回 %d", dataset.ErrNotFound, rawURL, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("解析 %s 响应失败: %w", rawURL, err)
	}
	return nil
}

// pickConfig 优先使用显式配置的子集，其次 default，最后取第一个。
func pickConfig(refs []SplitRef, subset string) (string, error) {
	if subset != "" {
		for _, ref := range refs {
			if ref.Config == subset {
				return subset, nil
			}
		}
		return "", fmt.Errorf("子集 %s 不存在", subset)
	}
	for _, ref := range refs {
		if ref.Config == defaultConfigName {
			return defaultConfigName, nil
		}
	}
	return refs[0].Config, nil
}

func convertFeatures(items []featureItem) []dataset.Feature {
	sorted := append([]featureItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FeatureIdx < sorted[j].FeatureIdx
	})
	features := make([]dataset.Feature, 0, len(sorted))
	for _, item := range sorted {
		features = append(features, dataset.Feature{Name: item.Name, Type: item.Type})
	}
	return features
}

// escapeIdentifier 逐段转义，保留 namespace/name 之间的 "/"。
func escapeIdentifier(identifier string) string {
	parts := strings.Split(identifier, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}

func userAgent() string {
	return "dataset-cache/" + version.Version
}

// IsNotFound 是 errors.Is(err, dataset.ErrNotFound) 的简写。
func IsNotFound(err error) bool {
	return errors.Is(err, dataset.ErrNotFound)
}
