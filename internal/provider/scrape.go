package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/creditsync/internal/domain"
)

const (
	StageSearch = "search"
	StageFetch  = "fetch"
	StageParse  = "parse"
)

// Error 是 provider 阶段的可追溯错误。
// 上层据此把失败归类为 network_failure / parse_miss，并写入 report。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "search" / "fetch" / "parse"
	URL      string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsParse 判断 err 是否为解析阶段失败。
func IsParse(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Stage == StageParse
}

// FetchPage 抓取一个页面；非 2xx 与拦截页都转换为可解释的错误。
// 返回值中的 finalURL 是跟随重定向后的地址。
func FetchPage(ctx context.Context, g Getter, u string) (body []byte, finalURL string, err error) {
	if g == nil {
		return nil, "", errors.New("getter 不能为空")
	}
	resp, err := g.Get(ctx, u)
	if err != nil {
		return nil, "", err
	}
	if isWAFChallenge(resp.StatusCode, resp.Header.Get("x-amzn-waf-action")) {
		return nil, "", &BlockedError{URL: u, Reason: "waf-challenge"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	finalURL = strings.TrimSpace(resp.URL)
	if finalURL == "" {
		finalURL = u
	}
	return resp.Body, finalURL, nil
}

// isWAFChallenge 识别 IMDb 前置 WAF 的挑战响应（202 + x-amzn-waf-action）。
func isWAFChallenge(status int, action string) bool {
	return status == 202 && strings.TrimSpace(action) != ""
}

// Search 抓取搜索页并返回有序候选。
func Search(ctx context.Context, src Source, g Getter, title string) ([]domain.Candidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title 不能为空")
	}
	u := src.SearchURL(title)
	b, pageURL, err := FetchPage(ctx, g, u)
	if err != nil {
		return nil, &Error{Provider: src.Name(), Stage: StageSearch, URL: u, Err: err}
	}
	cands, err := src.ParseSearch(b, pageURL)
	if err != nil {
		return nil, &Error{Provider: src.Name(), Stage: StageParse, URL: u, Err: err}
	}
	return cands, nil
}

// Credits 抓取作品页并返回演职员名单条目。
func Credits(ctx context.Context, src Source, g Getter, pageURL string) ([]string, error) {
	b, _, err := FetchPage(ctx, g, pageURL)
	if err != nil {
		return nil, &Error{Provider: src.Name(), Stage: StageFetch, URL: pageURL, Err: err}
	}
	credits, err := src.ParseCredits(b)
	if err != nil {
		return nil, &Error{Provider: src.Name(), Stage: StageParse, URL: pageURL, Err: err}
	}
	return credits, nil
}

// Project 抓取并解析作品详情页。
//
// 返回值：
// - rec：结构化记录（字段缺失时为缺省值）
// - html：原始 HTML（用于 cache）
func Project(ctx context.Context, src Source, g Getter, id domain.TitleID) (rec domain.ProjectRecord, html []byte, err error) {
	if id == "" {
		return domain.ProjectRecord{}, nil, errors.New("title id 不能为空")
	}
	u := src.TitleURL(id)
	b, _, err := FetchPage(ctx, g, u)
	if err != nil {
		return domain.ProjectRecord{}, nil, &Error{Provider: src.Name(), Stage: StageFetch, URL: u, Err: err}
	}
	rec, err = ParseProject(src, id, b)
	return rec, b, err
}

// ParseProject 解析已缓存或刚抓取的详情页 HTML。
func ParseProject(src Source, id domain.TitleID, html []byte) (domain.ProjectRecord, error) {
	u := src.TitleURL(id)
	rec, err := src.ParseProject(id, html, u)
	if err != nil {
		return domain.ProjectRecord{}, &Error{Provider: src.Name(), Stage: StageParse, URL: u, Err: err}
	}
	return rec, nil
}

// Filmography 抓取人物页并返回作品链接。
func Filmography(ctx context.Context, src Source, g Getter, personURL string) ([]string, error) {
	b, pageURL, err := FetchPage(ctx, g, personURL)
	if err != nil {
		return nil, &Error{Provider: src.Name(), Stage: StageFetch, URL: personURL, Err: err}
	}
	links, err := src.ParseFilmography(b, pageURL)
	if err != nil {
		return nil, &Error{Provider: src.Name(), Stage: StageParse, URL: personURL, Err: err}
	}
	return links, nil
}
