package planner

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/portfolio"
)

func TestPlanEnrich(t *testing.T) {
	entries, err := portfolio.DecodeEntries([]byte(`[
  {"title": "No URL"},
  {"title": "Complete", "imdb_url": "https://www.imdb.com/title/tt0000001/", "director": "A", "production_company": "B"},
  {"title": "Needs director", "imdb_url": "https://www.imdb.com/title/tt0000002/", "director": "Not specified", "production_company": "B"},
  {"title": "Needs both", "imdb_url": "https://www.imdb.com/title/tt0000003/?ref_=x"},
  {"title": "Bad URL", "imdb_url": "https://example.com/film/3"}
]`))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	got := PlanEnrich(entries)
	want := []EnrichPlan{
		{Index: 0, Title: "No URL", NeedDirector: true, NeedCompany: true, SkipReason: SkipNoURL},
		{Index: 1, Title: "Complete", URL: "https://www.imdb.com/title/tt0000001/", SkipReason: SkipComplete},
		{Index: 2, Title: "Needs director", URL: "https://www.imdb.com/title/tt0000002/", ID: "tt0000002", NeedDirector: true},
		{Index: 3, Title: "Needs both", URL: "https://www.imdb.com/title/tt0000003/?ref_=x", ID: "tt0000003", NeedDirector: true, NeedCompany: true},
		{Index: 4, Title: "Bad URL", URL: "https://example.com/film/3", NeedDirector: true, NeedCompany: true, SkipReason: SkipBadURL},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("计划不符合预期 (-want +got):\n%s", diff)
	}
	if got[2].Skip() || !got[0].Skip() {
		t.Fatalf("Skip() 与 SkipReason 不一致")
	}
}

func TestPlanScrape_DedupeKeepsFirstSeenOrder(t *testing.T) {
	links := []string{
		"https://www.imdb.com/title/tt0000002/",
		"https://www.imdb.com/title/tt0000001/",
		"https://www.imdb.com/title/tt0000002/fullcredits",
		"https://www.imdb.com/name/nm0000001/",
		"https://www.imdb.com/title/tt0000003",
	}
	got := PlanScrape(links)
	want := []domain.TitleID{"tt0000002", "tt0000001", "tt0000003"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("去重结果不符合预期 (-want +got):\n%s", diff)
	}
}
