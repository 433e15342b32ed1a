package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置进入下载流程。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法解析日志级别")
	}
	switch g.LogFormat {
	case "text", "json":
	default:
		return newFieldError("Global.LogFormat", "仅支持 text/json")
	}
	if strings.TrimSpace(g.DatasetName) == "" {
		return newFieldError("Global.DatasetName", "不能为空")
	}
	if strings.TrimSpace(g.FolderName) == "" {
		return newFieldError("Global.FolderName", "不能为空")
	}
	if g.ListenPort < 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 0-65535")
	}

	h := c.Hub
	if err := validateUpstream(h.Endpoint); err != nil {
		return fmt.Errorf("%s: %w", hubField("Endpoint"), err)
	}
	if err := validateUpstream(h.ServerEndpoint); err != nil {
		return fmt.Errorf("%s: %w", hubField("ServerEndpoint"), err)
	}
	if h.PageSize <= 0 || h.PageSize > MaxPageSize {
		return newFieldError(hubField("PageSize"), fmt.Sprintf("必须在 1-%d", MaxPageSize))
	}
	if h.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError(hubField("UpstreamTimeout"), "必须大于 0")
	}
	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	return nil
}
