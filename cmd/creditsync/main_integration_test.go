package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/creditsync/internal/config"
	"github.com/John-Robertt/creditsync/internal/domain"
)

func newFixtureSite(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/find":             "search.html",
		"/title/tt9999991/": "title_film.html",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		b, err := os.ReadFile(filepath.Join("..", "..", "internal", "provider", "imdb", "testdata", name))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCLI(root string) (*cli, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	c := newCLI(&stdout, &stderr)
	c.getwd = func() (string, error) { return root, nil }
	c.interactive = func() (io.Writer, bool) { return nil, false }
	return c, &stdout, &stderr
}

func mustWrite(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}

func TestCLI_NoTTY_StdoutOnlyRunReportJSON(t *testing.T) {
	// 这个测试锁定对外契约：stdout 非 TTY 时只能输出一个 RunReport JSON（进度/摘要必须走 stderr）。
	srv := newFixtureSite(t)
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, config.DefaultFileName), "person:\n  name: Sam Roe\nbase_url: "+srv.URL+"\nrequest_delay: 0s\n")
	mustWrite(t, filepath.Join(root, config.DefaultVerifyInput), "- Echo (2019) - Film\n")

	c, stdout, stderr := newTestCLI(root)
	if code := c.execute(context.Background(), []string{"verify", "--output", "out/verified.md"}); code != 0 {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr.String())
	}

	var rr domain.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\nstdout=%q", err, stdout.String())
	}
	if rr.Command != config.CommandVerify || rr.Summary.Verified != 1 {
		t.Fatalf("report 不符合预期：%+v", rr)
	}
	if strings.Contains(stdout.String(), "完成：") {
		t.Fatalf("stdout 不应包含摘要：%q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "完成：total=1") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}

	b, err := os.ReadFile(filepath.Join(root, "out", "verified.md"))
	if err != nil {
		t.Fatalf("期望写出结果文件：%v", err)
	}
	want := "- [Echo](" + srv.URL + "/title/tt9999991/) (2019) - Film\n"
	if string(b) != want {
		t.Fatalf("结果文件不符合预期：%q", string(b))
	}
}

func TestCLI_ConfigErrorIsReported(t *testing.T) {
	root := t.TempDir()

	c, stdout, _ := newTestCLI(root)
	if code := c.execute(context.Background(), []string{"scrape"}); code != 1 {
		t.Fatalf("配置错误应返回 1，实际 %d", code)
	}
	var rr domain.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &rr); err != nil {
		t.Fatalf("配置错误也应输出 RunReport JSON：%v", err)
	}
	if len(rr.Items) != 1 || rr.Items[0].ErrorCode != config.ErrCodeMissingPerson {
		t.Fatalf("report 不符合预期：%+v", rr.Items)
	}
}

func TestCLI_FatalInputExitsOne(t *testing.T) {
	root := t.TempDir()

	c, stdout, stderr := newTestCLI(root)
	code := c.execute(context.Background(), []string{"enrich", "--input", "missing.json", "--delay", "0s"})
	if code != 1 {
		t.Fatalf("输入不可读应返回 1，实际 %d", code)
	}
	var rr domain.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &rr); err != nil {
		t.Fatalf("致命错误也应输出 RunReport JSON：%v", err)
	}
	if rr.Summary.Failed != 1 || rr.Items[0].ErrorCode != domain.ErrCodeIOFailed {
		t.Fatalf("report 不符合预期：%+v", rr)
	}
	if !strings.Contains(stderr.String(), "运行失败") {
		t.Fatalf("stderr 应说明失败原因：%q", stderr.String())
	}
}

func TestCLI_UnknownFlagIsUsageError(t *testing.T) {
	c, _, _ := newTestCLI(t.TempDir())
	if code := c.execute(context.Background(), []string{"verify", "--bogus"}); code != 2 {
		t.Fatalf("未知参数应返回 2，实际 %d", code)
	}
}
