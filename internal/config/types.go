package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级行为：日志、默认数据集以及本地缓存目录。
type GlobalConfig struct {
	LogLevel      string `mapstructure:"LogLevel"`
	LogFormat     string `mapstructure:"LogFormat"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
	DatasetName   string `mapstructure:"DatasetName"`
	FolderName    string `mapstructure:"FolderName"`
	ListenPort    int    `mapstructure:"ListenPort"`
}

// HubConfig 决定如何访问远端数据集 Hub。
type HubConfig struct {
	Endpoint        string   `mapstructure:"Endpoint"`
	ServerEndpoint  string   `mapstructure:"ServerEndpoint"`
	Token           string   `mapstructure:"Token"`
	Subset          string   `mapstructure:"Subset"`
	PageSize        int      `mapstructure:"PageSize"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Hub    HubConfig    `mapstructure:"Hub"`
}

// HasToken 表示是否配置了访问 Hub 的凭证。
func (h HubConfig) HasToken() bool {
	return strings.TrimSpace(h.Token) != ""
}

// AuthMode 输出 `token` 或 `anonymous`，供日志字段使用。
func (h HubConfig) AuthMode() string {
	if h.HasToken() {
		return "token"
	}
	return "anonymous"
}

// ServeEnabled 表示是否配置了 HTTP 服务端口。
func (g GlobalConfig) ServeEnabled() bool {
	return g.ListenPort > 0
}
