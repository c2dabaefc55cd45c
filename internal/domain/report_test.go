package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SummaryAndUTC(t *testing.T) {
	r := RunReport{
		Command:    "verify",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{Title: "B", Status: StatusVerified},
			{Title: "A", Status: StatusUnverified},
			{Title: "C", Status: StatusUnresolved, ErrorCode: ErrCodeNoMatch},
			{Title: "D", Status: StatusFailed, ErrorCode: ErrCodeNetworkFailure},
			{Title: "E", Status: StatusSkipped},
		},
	}

	r.Finalize()

	// items 保持输入顺序。
	if r.Items[0].Title != "B" || r.Items[1].Title != "A" {
		t.Fatalf("items 不应被重新排序：%+v", r.Items)
	}
	want := ReportSummary{Total: 5, Succeeded: 2, Failed: 2, Skipped: 1, Verified: 1, Unverified: 1, Unresolved: 1}
	if r.Summary != want {
		t.Fatalf("summary 统计不正确：got=%+v want=%+v", r.Summary, want)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestRunReport_Finalize_EmptyItemsIsArray(t *testing.T) {
	var r RunReport
	r.Finalize()
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"items":[]`)) {
		t.Fatalf("items 应输出为 []：%s", string(b))
	}
}
