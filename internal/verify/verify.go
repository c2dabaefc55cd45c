// Package verify 把参考清单里的一条作品解析为 IMDb 规范链接，并确认该人物确实出现在演职员名单中。
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/John-Robertt/creditsync/internal/domain"
)

// SearchFunc 按标题搜索，返回站点给出的有序候选。
type SearchFunc func(ctx context.Context, title string) ([]domain.Candidate, error)

// FetchFunc 抓取规范页面的演职员名单条目。
// 页面上没有任何名单结构时应返回 ErrNoCredits（或包装它的错误）。
type FetchFunc func(ctx context.Context, canonicalURL string) ([]string, error)

// ErrNoCredits 表示页面可达，但找不到演职员名单结构。
var ErrNoCredits = errors.New("页面缺少演职员名单")

type Kind string

const (
	KindNetwork   Kind = "network"
	KindParseMiss Kind = "parse_miss"
	KindNoMatch   Kind = "no_match"
)

// Error 是单条记录的可追溯失败；记录被标为 unresolved，批处理继续。
type Error struct {
	Kind  Kind
	Title string
	Err   error

	// Hint 仅用于诊断（NoMatch 时最接近的候选标题），不影响匹配结果。
	Hint string
}

func (e *Error) Error() string {
	if e == nil {
		return "verify error"
	}
	msg := fmt.Sprintf("%s: %q", e.Kind, e.Title)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// SelectMatch 返回第一个同时满足以下条件的候选：
// - 标题互相包含（不区分大小写）
// - 参考年份是候选年份文本的子串
// - 候选 URL 携带作品 ID
//
// 不打分；命中即返回。
func SelectMatch(ref domain.ReferenceRecord, cands []domain.Candidate) (domain.Candidate, bool) {
	want := strings.ToLower(strings.TrimSpace(ref.Title))
	year := strings.TrimSpace(ref.Year)
	if want == "" || year == "" {
		return domain.Candidate{}, false
	}
	for _, c := range cands {
		got := strings.ToLower(strings.TrimSpace(c.Title))
		if got == "" {
			continue
		}
		if !strings.Contains(got, want) && !strings.Contains(want, got) {
			continue
		}
		if !strings.Contains(c.YearText, year) {
			continue
		}
		if _, ok := domain.TitleIDFromURL(c.URL); !ok {
			continue
		}
		return c, true
	}
	return domain.Candidate{}, false
}

// CanonicalURL 把候选链接归一为 base + "/title/<id>/"。
func CanonicalURL(base string, id domain.TitleID) string {
	return strings.TrimRight(base, "/") + "/title/" + string(id) + "/"
}

// Verifier 持有站点根地址与被核对的人物名。
type Verifier struct {
	Base   string
	Person string
	Search SearchFunc
	Fetch  FetchFunc
}

// Verify 执行 搜索 → 选择 → 确认，返回解析后的记录。
//
// 名字不在名单里不是错误：返回 Verified=false 的记录，由上层决定是否保留。
func (v Verifier) Verify(ctx context.Context, ref domain.ReferenceRecord) (domain.ResolvedRecord, error) {
	if v.Search == nil || v.Fetch == nil {
		return domain.ResolvedRecord{}, errors.New("verifier 未配置 search/fetch")
	}

	cands, err := v.Search(ctx, ref.Title)
	if err != nil {
		return domain.ResolvedRecord{}, &Error{Kind: KindNetwork, Title: ref.Title, Err: err}
	}

	c, ok := SelectMatch(ref, cands)
	if !ok {
		return domain.ResolvedRecord{}, &Error{
			Kind:  KindNoMatch,
			Title: ref.Title,
			Err:   fmt.Errorf("%d 个候选中没有标题与年份同时匹配的结果", len(cands)),
			Hint:  closestTitle(ref.Title, cands),
		}
	}

	id, _ := domain.TitleIDFromURL(c.URL)
	canonical := CanonicalURL(v.Base, id)

	credits, err := v.Fetch(ctx, canonical)
	if err != nil {
		kind := KindNetwork
		if errors.Is(err, ErrNoCredits) {
			kind = KindParseMiss
		}
		return domain.ResolvedRecord{}, &Error{Kind: kind, Title: ref.Title, Err: err}
	}
	if len(credits) == 0 {
		return domain.ResolvedRecord{}, &Error{Kind: KindParseMiss, Title: ref.Title, Err: ErrNoCredits}
	}

	return domain.ResolvedRecord{
		ReferenceRecord: ref,
		CanonicalURL:    canonical,
		CanonicalID:     id,
		Verified:        strings.Contains(strings.Join(credits, "\n"), v.Person),
	}, nil
}

// closestTitle 返回与参考标题 Jaro-Winkler 相似度最高的候选标题（无候选时为空）。
func closestTitle(title string, cands []domain.Candidate) string {
	want := strings.ToLower(strings.TrimSpace(title))
	best, bestScore := "", 0.0
	for _, c := range cands {
		t := strings.TrimSpace(c.Title)
		if t == "" {
			continue
		}
		score := matchr.JaroWinkler(want, strings.ToLower(t), false)
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	return best
}
