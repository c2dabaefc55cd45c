package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/John-Robertt/creditsync/internal/config"
	"github.com/John-Robertt/creditsync/internal/domain"
)

// emitReport 输出最终结果。
//
// 约定：
// - stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（摘要走 stderr）
// - stdout 是 TTY：输出摘要 + 需要关注的条目表格
func (c *cli) emitReport(rr domain.RunReport) {
	if !isTTY(c.stdout) {
		enc := json.NewEncoder(c.stdout)
		_ = enc.Encode(rr)
		fmt.Fprintln(c.stderr, summaryLine(rr))
		return
	}

	fmt.Fprintln(c.stdout, summaryLine(rr))
	if renderIssues(c.stdout, rr) > 0 {
		fmt.Fprintln(c.stdout)
	}
}

func summaryLine(rr domain.RunReport) string {
	s := rr.Summary
	line := fmt.Sprintf("完成：total=%d succeeded=%d failed=%d skipped=%d", s.Total, s.Succeeded, s.Failed, s.Skipped)
	if rr.Command == config.CommandVerify {
		line += fmt.Sprintf(" verified=%d unverified=%d unresolved=%d", s.Verified, s.Unverified, s.Unresolved)
	}
	return line
}

// renderIssues 把失败与 unverified 条目渲染为表格，返回行数（0 表示没有输出）。
func renderIssues(w io.Writer, rr domain.RunReport) int {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "标题", "年份", "状态", "错误码", "说明"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 6, WidthMax: 80},
	})

	rows := 0
	for i, it := range rr.Items {
		if !it.Failed() && it.Status != domain.StatusUnverified {
			continue
		}
		title := it.Title
		if title == "" {
			title = "<run>"
		}
		t.AppendRow(table.Row{i + 1, title, it.Year, it.Status, it.ErrorCode, truncate(it.ErrorMsg, 160)})
		rows++
	}
	if rows == 0 {
		return 0
	}
	t.Render()
	return rows
}

// reportForError 为“尚未开始执行”的失败（配置错误等）构造一个合成 report。
func reportForError(command, code string, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Command:    command,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func (c *cli) pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(c.stderr) {
		return c.stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(c.stdout) {
		return c.stdout, true
	}
	return nil, false
}

// emitLocations 在交互模式下提示产物位置。
func emitLocations(w io.Writer, rr domain.RunReport) {
	if w == nil || strings.TrimSpace(rr.Output) == "" {
		return
	}
	fmt.Fprintf(w, "output: %s\n", rr.Output)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len([]rune(s)) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
