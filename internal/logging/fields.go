package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// DatasetFields 提供数据集标识与缓存路径字段，供下载/缓存日志复用。
func DatasetFields(action, dataset, path string) logrus.Fields {
	return logrus.Fields{
		"action":  action,
		"dataset": dataset,
		"path":    path,
	}
}

// UpstreamFields 描述一次对 Hub 的请求，便于定位失败的 URL。
func UpstreamFields(url string, status int, authMode string) logrus.Fields {
	return logrus.Fields{
		"action":    "upstream_request",
		"url":       url,
		"status":    status,
		"auth_mode": authMode,
	}
}
