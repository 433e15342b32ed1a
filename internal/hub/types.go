package hub

import (
	"encoding/json"

	"github.com/any-hub/dataset-cache/internal/dataset"
)

// DatasetInfo 是 /api/datasets/<id> 的子集。
type DatasetInfo struct {
	ID           string `json:"id"`
	SHA          string `json:"sha"`
	LastModified string `json:"lastModified"`
	Private      bool   `json:"private"`
}

// SplitRef 标识 datasets-server 中的一个 config/split 组合。
type SplitRef struct {
	Dataset string `json:"dataset"`
	Config  string `json:"config"`
	Split   string `json:"split"`
}

type splitsResponse struct {
	Splits []SplitRef `json:"splits"`
}

type featureItem struct {
	FeatureIdx int             `json:"feature_idx"`
	Name       string          `json:"name"`
	Type       json.RawMessage `json:"type"`
}

type rowItem struct {
	RowIdx int         `json:"row_idx"`
	Row    dataset.Row `json:"row"`
}

// RowsPage 是 /rows 的一页结果。
type RowsPage struct {
	Features     []featureItem `json:"features"`
	Rows         []rowItem     `json:"rows"`
	NumRowsTotal int           `json:"num_rows_total"`
}
