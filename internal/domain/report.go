package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusVerified   = "verified"
	StatusUnverified = "unverified"
	StatusUnresolved = "unresolved"
	StatusProcessed  = "processed"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

const (
	ErrCodeNetworkFailure = "network_failure"
	ErrCodeParseMiss      = "parse_miss"
	ErrCodeNoMatch        = "no_match"
	ErrCodeIOFailed       = "io_failed"
	ErrCodeConfigInvalid  = "config_invalid"
	ErrCodeCanceled       = "canceled"
)

// RunReport 是对外稳定输出（stdout JSON）的结构。
type RunReport struct {
	Command string `json:"command"`
	Input   string `json:"input"`
	Output  string `json:"output"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

// ReportSummary 中 Succeeded/Failed 是给人看的汇总口径：
// verified/unverified/processed 计为成功，unresolved/failed 计为失败，skipped 单独计数。
type ReportSummary struct {
	Total      int `json:"total"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Verified   int `json:"verified"`
	Unverified int `json:"unverified"`
	Unresolved int `json:"unresolved"`
}

type ItemResult struct {
	Title string `json:"title"`
	Year  string `json:"year"`
	URL   string `json:"url"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	// Hint 仅用于 no_match：最接近的候选片名（诊断用，不参与匹配）。
	Hint string `json:"hint,omitempty"`
}

// Failed 判断条目是否计入失败列表。
func (it ItemResult) Failed() bool {
	return it.Status == StatusUnresolved || it.Status == StatusFailed
}

// Finalize 统一时间为 UTC，并由 items 计算 summary。
// items 保持处理顺序（即输入顺序），不重新排序。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Items == nil {
		r.Items = []ItemResult{}
	}

	s := ReportSummary{Total: len(r.Items)}
	for _, it := range r.Items {
		switch it.Status {
		case StatusVerified:
			s.Verified++
			s.Succeeded++
		case StatusUnverified:
			s.Unverified++
			s.Succeeded++
		case StatusProcessed:
			s.Succeeded++
		case StatusSkipped:
			s.Skipped++
		case StatusUnresolved:
			s.Unresolved++
			s.Failed++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
