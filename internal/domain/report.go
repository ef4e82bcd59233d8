package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusOK        = "ok"
	StatusEmpty     = "empty"
	StatusLocked    = "locked"
	StatusFailed    = "failed"
	StatusUnmatched = "unmatched"
)

const (
	ErrCodeUnmatchedURL   = "unmatched_url"
	ErrCodeFetchFailed    = "fetch_failed"
	ErrCodeParseFailed    = "parse_failed"
	ErrCodeConfigNotFound = "config_not_found"
	ErrCodeConfigInvalid  = "config_invalid"

	// ErrCodeInvalidArgument 只用于单路由命令的参数错误（空搜索词、非法分类 id）。
	ErrCodeInvalidArgument = "invalid_argument"
)

// RunReport 是批量模式对外稳定输出（stdout JSON）的结构。
type RunReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	OK        int `json:"ok"`
	Empty     int `json:"empty"`
	Locked    int `json:"locked"`
	Failed    int `json:"failed"`
	Unmatched int `json:"unmatched"`
}

// ItemResult 是批量中单个 URL 的结果。
// Status：ok / empty（没找到内容，但请求成功）/ locked / failed（抓取失败）/ unmatched（URL 形态未知）。
type ItemResult struct {
	URL    string `json:"url"`
	Route  string `json:"route"`
	Source string `json:"source"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Title    string        `json:"title,omitempty"`
	Episodes int           `json:"episodes,omitempty"`
	Stream   *StreamResult `json:"stream,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 url 字典序；url=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].URL
		b := r.Items[j].URL
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusOK:
			s.OK++
		case StatusEmpty:
			s.Empty++
		case StatusLocked:
			s.Locked++
		case StatusFailed:
			s.Failed++
		case StatusUnmatched:
			s.Unmatched++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
