package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/creditsync/internal/domain"
)

const base = "https://www.imdb.test"

func TestSelectMatch_RequiresTitleAndYear(t *testing.T) {
	ref := domain.ReferenceRecord{Title: "Echo", Year: "2019"}
	cands := []domain.Candidate{
		{Title: "Echo Park", YearText: "2005", URL: "/title/tt0476643/?ref_=fn_al_tt_1"},
		{Title: "Echo", YearText: "2019-2021", URL: "/title/tt9999991/?ref_=fn_al_tt_2"},
	}
	got, ok := SelectMatch(ref, cands)
	if !ok {
		t.Fatalf("期望命中，但没有匹配")
	}
	if diff := cmp.Diff(cands[1], got); diff != "" {
		t.Fatalf("应选中第二个候选 (-want +got):\n%s", diff)
	}
}

func TestSelectMatch_TitleOnlyOrYearOnlyIsNotAMatch(t *testing.T) {
	ref := domain.ReferenceRecord{Title: "Echo", Year: "2019"}

	titleOnly := []domain.Candidate{{Title: "Echo", YearText: "2008", URL: "/title/tt0000001/"}}
	if _, ok := SelectMatch(ref, titleOnly); ok {
		t.Fatalf("只有标题匹配时不应命中")
	}

	yearOnly := []domain.Candidate{{Title: "Delta", YearText: "2019", URL: "/title/tt0000002/"}}
	if _, ok := SelectMatch(ref, yearOnly); ok {
		t.Fatalf("只有年份匹配时不应命中")
	}
}

func TestSelectMatch_ContainmentIsBidirectionalAndCaseInsensitive(t *testing.T) {
	ref := domain.ReferenceRecord{Title: "The Last Echo of Summer", Year: "2021"}
	cands := []domain.Candidate{{Title: "LAST ECHO", YearText: "2021", URL: "/title/tt1234567/"}}
	if _, ok := SelectMatch(ref, cands); !ok {
		t.Fatalf("候选标题包含于参考标题时应命中")
	}
}

func TestSelectMatch_SkipsCandidateWithoutTitleID(t *testing.T) {
	ref := domain.ReferenceRecord{Title: "Echo", Year: "2019"}
	cands := []domain.Candidate{
		{Title: "Echo", YearText: "2019", URL: "/name/nm0000001/"},
		{Title: "Echo", YearText: "2019", URL: "/title/tt7654321/"},
	}
	got, ok := SelectMatch(ref, cands)
	if !ok || got.URL != "/title/tt7654321/" {
		t.Fatalf("应跳过无作品 ID 的候选，实际 %+v ok=%v", got, ok)
	}
}

func fixedSearch(cands []domain.Candidate, err error) SearchFunc {
	return func(context.Context, string) ([]domain.Candidate, error) { return cands, err }
}

func fixedFetch(credits []string, err error, seen *string) FetchFunc {
	return func(_ context.Context, u string) ([]string, error) {
		if seen != nil {
			*seen = u
		}
		return credits, err
	}
}

func TestVerify_ConfirmedAndCanonicalized(t *testing.T) {
	var fetched string
	v := Verifier{
		Base:   base + "/",
		Person: "Dana Levi",
		Search: fixedSearch([]domain.Candidate{{Title: "Echo", YearText: "2019–2021", URL: "/title/tt9999991/?ref_=fn"}}, nil),
		Fetch:  fixedFetch([]string{"Director Sam Roe", "Editor Dana Levi"}, nil, &fetched),
	}
	ref := domain.ReferenceRecord{Title: "Echo", Year: "2019", Note: "Editor"}
	got, err := v.Verify(context.Background(), ref)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := domain.ResolvedRecord{
		ReferenceRecord: ref,
		CanonicalURL:    base + "/title/tt9999991/",
		CanonicalID:     "tt9999991",
		Verified:        true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("结果不符合预期 (-want +got):\n%s", diff)
	}
	if fetched != want.CanonicalURL {
		t.Fatalf("应抓取规范 URL，实际 %q", fetched)
	}
}

func TestVerify_NameAbsentIsUnverifiedNotError(t *testing.T) {
	v := Verifier{
		Base:   base,
		Person: "Dana Levi",
		Search: fixedSearch([]domain.Candidate{{Title: "Echo", YearText: "2019", URL: "/title/tt9999991/"}}, nil),
		Fetch:  fixedFetch([]string{"Editor dana levi"}, nil, nil),
	}
	got, err := v.Verify(context.Background(), domain.ReferenceRecord{Title: "Echo", Year: "2019"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 名字匹配区分大小写。
	if got.Verified {
		t.Fatalf("名字不在名单中时应为 unverified")
	}
	if got.CanonicalURL == "" {
		t.Fatalf("unverified 记录仍应带有规范 URL")
	}
}

func TestVerify_FailureKinds(t *testing.T) {
	ref := domain.ReferenceRecord{Title: "Echo", Year: "2019"}
	ok := []domain.Candidate{{Title: "Echo", YearText: "2019", URL: "/title/tt9999991/"}}
	boom := errors.New("connection reset")

	cases := []struct {
		name   string
		search SearchFunc
		fetch  FetchFunc
		want   Kind
	}{
		{"search network", fixedSearch(nil, boom), fixedFetch(nil, nil, nil), KindNetwork},
		{"no match", fixedSearch([]domain.Candidate{{Title: "Echo Park", YearText: "2005", URL: "/title/tt0476643/"}}, nil), fixedFetch(nil, nil, nil), KindNoMatch},
		{"fetch network", fixedSearch(ok, nil), fixedFetch(nil, boom, nil), KindNetwork},
		{"credits missing", fixedSearch(ok, nil), fixedFetch(nil, ErrNoCredits, nil), KindParseMiss},
		{"credits empty", fixedSearch(ok, nil), fixedFetch([]string{}, nil, nil), KindParseMiss},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Verifier{Base: base, Person: "Dana Levi", Search: tc.search, Fetch: tc.fetch}
			_, err := v.Verify(context.Background(), ref)
			var ve *Error
			if !errors.As(err, &ve) {
				t.Fatalf("期望 *verify.Error，实际 %T (%v)", err, err)
			}
			if ve.Kind != tc.want {
				t.Fatalf("期望 kind=%s，实际 %s", tc.want, ve.Kind)
			}
		})
	}
}

func TestVerify_NoMatchCarriesClosestTitleHint(t *testing.T) {
	v := Verifier{
		Base:   base,
		Person: "Dana Levi",
		Search: fixedSearch([]domain.Candidate{
			{Title: "Mirage", YearText: "2019", URL: "/title/tt0000003/"},
			{Title: "Echoes", YearText: "2011", URL: "/title/tt0000004/"},
		}, nil),
		Fetch: fixedFetch(nil, nil, nil),
	}
	_, err := v.Verify(context.Background(), domain.ReferenceRecord{Title: "Echo", Year: "2019"})
	var ve *Error
	if !errors.As(err, &ve) || ve.Kind != KindNoMatch {
		t.Fatalf("期望 no_match，实际 %v", err)
	}
	if ve.Hint != "Echoes" {
		t.Fatalf("提示应为最接近的标题 Echoes，实际 %q", ve.Hint)
	}
}
