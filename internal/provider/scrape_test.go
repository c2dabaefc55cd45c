package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/infra/httpx"
)

type stubGetter struct {
	pages map[string]*httpx.Response
	err   error
	calls []string
}

func (g *stubGetter) Get(_ context.Context, u string) (*httpx.Response, error) {
	g.calls = append(g.calls, u)
	if g.err != nil {
		return nil, g.err
	}
	if r, ok := g.pages[u]; ok {
		return r, nil
	}
	return &httpx.Response{StatusCode: http.StatusNotFound, Header: http.Header{}, URL: u}, nil
}

func okResp(body string) *httpx.Response {
	return &httpx.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(body)}
}

type stubSource struct {
	parseErr error
}

func (stubSource) Name() string { return "stub" }
func (stubSource) SearchURL(title string) string { return "https://s.test/find?q=" + title }
func (stubSource) TitleURL(id domain.TitleID) string { return "https://s.test/title/" + string(id) + "/" }

func (s stubSource) ParseSearch(html []byte, _ string) ([]domain.Candidate, error) {
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	return []domain.Candidate{{Title: string(html), YearText: "2019", URL: "/title/tt0000001/"}}, nil
}

func (s stubSource) ParseCredits(html []byte) ([]string, error) {
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	return []string{string(html)}, nil
}

func (s stubSource) ParseProject(id domain.TitleID, html []byte, pageURL string) (domain.ProjectRecord, error) {
	if s.parseErr != nil {
		return domain.ProjectRecord{}, s.parseErr
	}
	return domain.ProjectRecord{IMDbID: id, Title: string(html), URL: pageURL}, nil
}

func (s stubSource) ParseFilmography(html []byte, _ string) ([]string, error) {
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	return []string{string(html)}, nil
}

func TestSearch_StagesAndResult(t *testing.T) {
	g := &stubGetter{pages: map[string]*httpx.Response{"https://s.test/find?q=Echo": okResp("Echo")}}
	cands, err := Search(context.Background(), stubSource{}, g, " Echo ")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(cands) != 1 || cands[0].Title != "Echo" {
		t.Fatalf("候选不符合预期：%+v", cands)
	}

	_, err = Search(context.Background(), stubSource{}, g, "Missing")
	var pe *Error
	if !errors.As(err, &pe) || pe.Stage != StageSearch {
		t.Fatalf("期望 stage=search 错误，实际 %v", err)
	}
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("期望包装 HTTPStatusError(404)，实际 %v", err)
	}

	_, err = Search(context.Background(), stubSource{parseErr: errors.New("bad")}, g, "Echo")
	if !IsParse(err) {
		t.Fatalf("期望 parse 阶段错误，实际 %v", err)
	}
}

func TestFetchPage_WAFChallengeIsBlocked(t *testing.T) {
	h := http.Header{}
	h.Set("x-amzn-waf-action", "challenge")
	g := &stubGetter{pages: map[string]*httpx.Response{"https://s.test/x": {StatusCode: http.StatusAccepted, Header: h}}}

	_, _, err := FetchPage(context.Background(), g, "https://s.test/x")
	var be *BlockedError
	if !errors.As(err, &be) || be.Reason != "waf-challenge" {
		t.Fatalf("期望 BlockedError(waf-challenge)，实际 %v", err)
	}
}

func TestFetchPage_TransportErrorPassesThrough(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	g := &stubGetter{err: boom}
	if _, _, err := FetchPage(context.Background(), g, "https://s.test/x"); !errors.Is(err, boom) {
		t.Fatalf("期望原样返回传输错误，实际 %v", err)
	}
}

func TestProject_ReturnsHTMLForCache(t *testing.T) {
	g := &stubGetter{pages: map[string]*httpx.Response{"https://s.test/title/tt0000001/": okResp("Echo")}}
	rec, html, err := Project(context.Background(), stubSource{}, g, "tt0000001")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rec.Title != "Echo" || rec.IMDbID != "tt0000001" || string(html) != "Echo" {
		t.Fatalf("结果不符合预期：%+v html=%q", rec, html)
	}

	if _, _, err := Project(context.Background(), stubSource{}, g, "tt0000002"); IsParse(err) || err == nil {
		t.Fatalf("404 应为 fetch 阶段错误，实际 %v", err)
	}
}

func TestCreditsAndFilmography_ParseStage(t *testing.T) {
	g := &stubGetter{pages: map[string]*httpx.Response{"https://s.test/p": okResp("x")}}
	src := stubSource{parseErr: errors.New("no markup")}

	if _, err := Credits(context.Background(), src, g, "https://s.test/p"); !IsParse(err) {
		t.Fatalf("Credits 期望 parse 阶段错误，实际 %v", err)
	}
	if _, err := Filmography(context.Background(), src, g, "https://s.test/p"); !IsParse(err) {
		t.Fatalf("Filmography 期望 parse 阶段错误，实际 %v", err)
	}
}
