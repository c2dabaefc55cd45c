package imdb

import (
	"regexp"
	"strings"

	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/extract"
)

// 规则表：每个字段按优先级排列。新版页面的 data-testid 在前，旧版类名在后兜底。

const (
	principalCredit = `li[data-testid='title-pc-principal-credit']`
	creditLabel     = `.ipc-metadata-list-item__label`
	creditItem      = `a.ipc-metadata-list-item__list-content-item`
)

var skipNav = extract.SkipPrefix("See ", "More ")

var (
	titleField = extract.Field{Name: "title", Rules: []extract.Rule{
		{Selector: `h1[data-testid='hero__pageTitle'] span.hero__primary-text`},
		{Selector: `h1[data-testid='hero__pageTitle']`},
		{Selector: `h1`},
	}}

	yearField = extract.Field{Name: "year", Rules: []extract.Rule{
		{Selector: `h1[data-testid='hero__pageTitle'] ~ ul a[href*='/releaseinfo']`, Transform: extract.FirstYear},
		{Selector: `h1[data-testid='hero__pageTitle'] ~ ul li`, Transform: extract.FirstYear},
		{Selector: `span.sc-8c396aa2-2`, Transform: extract.FirstYear},
	}}

	ratingField = extract.Field{Name: "rating", Rules: []extract.Rule{
		{Selector: `div[data-testid='hero-rating-bar__aggregate-rating__score'] > span:first-child`},
		{Selector: `span.sc-bde20123-1`},
	}}

	genresField = extract.Field{Name: "genres", Rules: []extract.Rule{
		{Selector: `div[data-testid='interests'] .ipc-chip__text`},
		{Selector: `div[data-testid='genres'] .ipc-chip__text`},
		{Selector: `a[href*='/search/title?genres=']`},
	}}

	runtimeField = extract.Field{Name: "runtime", Rules: []extract.Rule{
		{Selector: `li[data-testid='title-techspec_runtime'] .ipc-metadata-list-item__list-content-item`},
		{Selector: `h1[data-testid='hero__pageTitle'] ~ ul li`, Transform: runtimeText},
	}}

	plotField = extract.Field{Name: "plot", Rules: []extract.Rule{
		{Selector: `span[data-testid='plot-xl']`},
		{Selector: `span[data-testid='plot-l']`},
		{Selector: `span.sc-16ede01-2`},
	}}

	languageField = extract.Field{Name: "language", Rules: []extract.Rule{
		{Selector: `li[data-testid='title-details-languages'] ` + creditItem},
		{Selector: `a[href*='primary_language=']`},
	}}

	countryField = extract.Field{Name: "country", Rules: []extract.Rule{
		{Selector: `li[data-testid='title-details-origin'] ` + creditItem},
		{Selector: `a[href*='country_of_origin=']`},
	}}

	companyField = extract.Field{Name: "production_company", Skip: skipNav, Rules: []extract.Rule{
		{Selector: `li[data-testid='title-details-companies'] ` + creditItem},
		{Selector: `li[data-testid='title-details-companies'] a`},
		{Selector: `a[href*='/company/']`},
	}}

	posterField = extract.Field{Name: "poster", Rules: []extract.Rule{
		{Selector: `div[data-testid='hero-media__poster'] img`, Attr: "src"},
		{Selector: `meta[property='og:image']`, Attr: "content"},
	}}

	castField = extract.Field{Name: "cast", Limit: domain.MaxCast, Skip: skipNav, Rules: []extract.Rule{
		{Selector: `a[data-testid='title-cast-item__actor']`},
		{Selector: principalCredit, Label: []string{"Star", "Stars"}, LabelSelector: creditLabel, Within: creditItem},
	}}

	directorsField = creditField("directors", "Director", "Directors")
	creatorsField  = creditField("creators", "Creator", "Creators")
	writersField   = creditField("writers", "Writer", "Writers")

	budgetField = extract.Field{Name: "budget", Rules: []extract.Rule{
		{Selector: `li[data-testid='title-boxoffice-budget'] .ipc-metadata-list-item__list-content-item`},
		{Selector: `li.ipc-metadata-list__item:contains("Budget")`, Transform: extract.AfterColon},
	}}

	boxOfficeField = extract.Field{Name: "box_office", Rules: []extract.Rule{
		{Selector: `li[data-testid='title-boxoffice-cumulativeworldwidegross'] .ipc-metadata-list-item__list-content-item`},
		{Selector: `li.ipc-metadata-list__item:contains("Gross worldwide")`, Transform: extract.AfterColon},
	}}

	releaseDateField = extract.Field{Name: "release_date", Rules: []extract.Rule{
		{Selector: `li[data-testid='title-details-releasedate'] ` + creditItem},
		{Selector: `a[href*='/releaseinfo']`},
	}}

	episodesField = extract.Field{Name: "episodes", Rules: []extract.Rule{
		{Selector: `div[data-testid='episodes-header'] .ipc-title__subtext`},
		{Selector: `section[data-testid='Episodes'] .ipc-title__subtext`},
	}}

	creditsField = extract.Field{Name: "credits", Rules: []extract.Rule{
		{Selector: `.ipc-metadata-list-item__content-container`},
		{Selector: principalCredit},
	}}

	filmographyField = extract.Field{Name: "filmography", Rules: []extract.Rule{
		{Selector: `a[href^='/title/tt']`, Attr: "href", Transform: stripQuery},
	}}
)

// 搜索结果：条目选择器依次尝试；条目内字段用下面的规则。
var searchItemSelectors = []string{
	`li.find-result-item`,
	`li.ipc-metadata-list-summary-item`,
}

var (
	searchTitleField = extract.Field{Name: "search.title", Rules: []extract.Rule{
		{Selector: `.ipc-metadata-list-summary-item__t`},
		{Selector: `a[href*='/title/tt']`},
	}}

	searchHrefField = extract.Field{Name: "search.href", Rules: []extract.Rule{
		{Selector: `.ipc-metadata-list-summary-item__t`, Attr: "href"},
		{Selector: `a[href*='/title/tt']`, Attr: "href"},
	}}

	searchYearField = extract.Field{Name: "search.year", Rules: []extract.Rule{
		{Selector: `.ipc-metadata-list-summary-item__st`, Transform: normDash},
		{Selector: `.ipc-metadata-list-summary-item__li`, Transform: normDash},
	}}
)

// creditField 构造主要演职员（导演/主创/编剧）字段：
// 优先按标签匹配 principal credit 行，旧版页面回退到 "<span>标签</span><a>..</a>" 结构。
// 标签一律整体相等比较，"Casting Director" 不算 "Director"。
func creditField(name string, labels ...string) extract.Field {
	return extract.Field{Name: name, Skip: skipNav, Rules: []extract.Rule{
		{Selector: principalCredit, Label: labels, LabelSelector: creditLabel, Within: creditItem},
		{Selector: `li.ipc-metadata-list__item`, Label: labels, LabelSelector: creditLabel, Within: `a`},
		{Selector: `span`, Label: labels, LabelSelf: true, Siblings: `a`},
	}}
}

var runtimeRE = regexp.MustCompile(`^(?:\d+h(?: \d+m)?|\d+m)$`)

// runtimeText 只保留形如 "1h 45m" / "52m" 的值。
func runtimeText(s string) string {
	if runtimeRE.MatchString(s) {
		return s
	}
	return ""
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

func normDash(s string) string { return strings.ReplaceAll(s, "–", "-") }
