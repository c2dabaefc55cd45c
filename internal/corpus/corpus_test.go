package corpus

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/creditsync/internal/domain"
)

func TestParseLine_Grammar(t *testing.T) {
	cases := []struct {
		in   string
		want domain.ReferenceRecord
	}{
		{"- Echo (2019)", domain.ReferenceRecord{Title: "Echo", Year: "2019"}},
		{"- Echo (2019-2021) - TV Series, 16 episodes", domain.ReferenceRecord{Title: "Echo", Year: "2019-2021", Note: "TV Series, 16 episodes"}},
		{"  - The Long Way Home (2020-) - ongoing  ", domain.ReferenceRecord{Title: "The Long Way Home", Year: "2020-", Note: "ongoing"}},
		{"- הבית (2018) - סרט", domain.ReferenceRecord{Title: "הבית", Year: "2018", Note: "סרט"}},
	}
	for _, c := range cases {
		got, ok := ParseLine(c.in)
		if !ok {
			t.Fatalf("期望能解析：%q", c.in)
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Fatalf("ParseLine(%q) 不符合预期 (-want +got):\n%s", c.in, diff)
		}
	}
}

func TestParseLine_MalformedYieldsNothing(t *testing.T) {
	// 缺少前导 "-"、缺少年份括号、年份不是 4 位、标题/空行都应被跳过。
	for _, in := range []string{
		"Echo (2019)",
		"- Echo 2019",
		"- Echo (19)",
		"- Echo (unknown)",
		"# Filmography",
		"",
		"- (2019) - no title",
	} {
		if rec, ok := ParseLine(in); ok {
			t.Fatalf("不应解析成功：%q => %+v", in, rec)
		}
	}
}

func TestRead_SkipsMalformedAndCounts(t *testing.T) {
	in := strings.Join([]string{
		"# Chronological",
		"",
		"- Echo (2019) - Film",
		"Echo (2019)",
		"- Other (2005)",
	}, "\n")
	recs, skipped, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(recs) != 2 || recs[0].Title != "Echo" || recs[1].Title != "Other" {
		t.Fatalf("records 不符合预期：%+v", recs)
	}
	if skipped != 2 {
		t.Fatalf("期望跳过 2 行（空行不计），实际 %d", skipped)
	}
}

func TestFormatResolved_RoundTrip(t *testing.T) {
	for _, ref := range []domain.ReferenceRecord{
		{Title: "Echo", Year: "2019", Note: "Film"},
		{Title: "Echo", Year: "2019-2021", Note: "TV Series - 8 episodes"},
		{Title: "No Note", Year: "2001"},
		{Title: "Shtisel [Season 2]", Year: "2015", Note: "12 episodes"},
		{Title: "Foo]Bar", Year: "2010"},
		{Title: "[REC]", Year: "2007", Note: "Film"},
	} {
		line := FormatResolved(domain.ResolvedRecord{
			ReferenceRecord: ref,
			CanonicalURL:    "https://www.imdb.com/title/tt1234567/",
			CanonicalID:     "tt1234567",
			Verified:        true,
		})
		got, ok := ParseLine(line)
		if !ok {
			t.Fatalf("输出行无法回读：%q", line)
		}
		if diff := cmp.Diff(ref, got); diff != "" {
			t.Fatalf("回读不一致 line=%q (-want +got):\n%s", line, diff)
		}
	}
}

func TestParseLine_BracketedTitleSurvivesEmitAndReparse(t *testing.T) {
	ref, ok := ParseLine("- Shtisel [Season 2] (2015) - 12 episodes")
	if !ok {
		t.Fatalf("带方括号的片名应可解析")
	}
	line := FormatResolved(domain.ResolvedRecord{ReferenceRecord: ref, CanonicalURL: "https://www.imdb.com/title/tt1234567/"})
	if want := "- [Shtisel [Season 2]](https://www.imdb.com/title/tt1234567/) (2015) - 12 episodes"; line != want {
		t.Fatalf("输出格式不符合预期：\n got=%q\nwant=%q", line, want)
	}
	back, ok := ParseLine(line)
	if !ok {
		t.Fatalf("输出行无法回读：%q", line)
	}
	if diff := cmp.Diff(ref, back); diff != "" {
		t.Fatalf("回读不一致 (-want +got):\n%s", diff)
	}
}

func TestFormatResolved_Shape(t *testing.T) {
	got := FormatResolved(domain.ResolvedRecord{
		ReferenceRecord: domain.ReferenceRecord{Title: "Echo", Year: "2019", Note: "Film"},
		CanonicalURL:    "https://www.imdb.com/title/tt1234567/",
	})
	want := "- [Echo](https://www.imdb.com/title/tt1234567/) (2019) - Film"
	if got != want {
		t.Fatalf("输出格式不符合预期：\n got=%q\nwant=%q", got, want)
	}
	if s := string(Encode([]string{"a", "b"})); s != "a\nb\n" {
		t.Fatalf("Encode 不符合预期：%q", s)
	}
}
