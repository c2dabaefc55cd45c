// Package imdb 实现 IMDb 的 URL 规则与 HTML 解析。
package imdb

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/extract"
)

const DefaultBaseURL = "https://www.imdb.com"

// ErrNoCredits 表示作品页上没有演职员名单结构。
var ErrNoCredits = errors.New("未找到演职员名单")

// Source 实现 provider.Source。
//
// 约束：
// - IMDb 需要先搜索再进入详情页（参考清单里没有 title id）
// - Parse* 不做网络请求；字段缺失时回退缺省值而不是报错
type Source struct {
	// BaseURL 为空时使用 https://www.imdb.com（测试里指向 httptest 服务）。
	BaseURL string

	ext *extract.Extractor
}

func New(baseURL string, log *zap.Logger) *Source {
	return &Source{BaseURL: baseURL, ext: extract.New(log)}
}

func (*Source) Name() string { return "imdb" }

func (s *Source) baseURL() string {
	u := strings.TrimSpace(s.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (s *Source) extractor() *extract.Extractor {
	if s.ext == nil {
		s.ext = extract.New(nil)
	}
	return s.ext
}

// SearchURL 形如 https://www.imdb.com/find?q=Echo+Park
func (s *Source) SearchURL(title string) string {
	return s.baseURL() + "/find?q=" + url.QueryEscape(strings.TrimSpace(title))
}

// TitleURL 返回规范详情页 URL（带尾部斜杠）。
func (s *Source) TitleURL(id domain.TitleID) string {
	return s.baseURL() + "/title/" + string(id) + "/"
}

// ParseSearch 按页面顺序返回搜索候选；没有结果时返回空列表而不是错误。
func (s *Source) ParseSearch(html []byte, pageURL string) ([]domain.Candidate, error) {
	doc, err := parseDoc(html)
	if err != nil {
		return nil, err
	}

	var items *goquery.Selection
	for _, sel := range searchItemSelectors {
		items = doc.Find(sel)
		if items.Length() > 0 {
			break
		}
	}

	e := s.extractor()
	out := make([]domain.Candidate, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		title := e.TextIn(item, searchTitleField, "")
		if title == "" {
			return
		}
		href := e.TextIn(item, searchHrefField, "")
		out = append(out, domain.Candidate{
			Title:    title,
			YearText: e.TextIn(item, searchYearField, ""),
			URL:      resolveURL(s.baseOf(pageURL), href),
		})
	})
	return out, nil
}

// ParseCredits 返回名单条目文本（每个条目一行）。
func (s *Source) ParseCredits(html []byte) ([]string, error) {
	doc, err := parseDoc(html)
	if err != nil {
		return nil, err
	}
	credits := s.extractor().List(doc, creditsField, nil)
	if len(credits) == 0 {
		return nil, ErrNoCredits
	}
	return credits, nil
}

// ParseProject 把详情页逐字段解析为 ProjectRecord。
// 单个字段失败只会让该字段回退缺省值。
func (s *Source) ParseProject(id domain.TitleID, html []byte, pageURL string) (domain.ProjectRecord, error) {
	if id == "" {
		return domain.ProjectRecord{}, errors.New("title id 不能为空")
	}
	doc, err := parseDoc(html)
	if err != nil {
		return domain.ProjectRecord{}, err
	}

	canonical := s.TitleURL(id)
	e := s.extractor()
	rec := domain.ProjectRecord{
		ID:     uuid.NewSHA1(uuid.NameSpaceURL, []byte(canonical)).String(),
		IMDbID: id,
		URL:    canonical,

		Title:   e.Text(doc, titleField, domain.SentinelUnknown),
		Year:    e.Text(doc, yearField, domain.SentinelUnknown),
		Rating:  e.Text(doc, ratingField, domain.SentinelRating),
		Genres:  e.List(doc, genresField, []string{}),
		Runtime: e.Text(doc, runtimeField, domain.SentinelUnknown),
		Plot:    e.Text(doc, plotField, domain.SentinelPlot),

		Language:          e.Text(doc, languageField, domain.SentinelUnknown),
		Country:           e.Text(doc, countryField, domain.SentinelUnknown),
		ProductionCompany: e.Join(doc, companyField, ", ", domain.SentinelUnknown),
		PosterURL:         resolveURL(s.baseOf(pageURL), e.Text(doc, posterField, "")),

		Cast:      e.List(doc, castField, []string{}),
		Directors: e.List(doc, directorsField, []string{}),
		Creators:  e.List(doc, creatorsField, []string{}),
		Writers:   e.List(doc, writersField, []string{}),

		BoxOffice:   e.Text(doc, boxOfficeField, domain.SentinelNotAvailable),
		Budget:      e.Text(doc, budgetField, domain.SentinelNotAvailable),
		ReleaseDate: e.Text(doc, releaseDateField, domain.SentinelUnknown),
		Episodes:    e.Text(doc, episodesField, ""),
	}
	rec.ApplyContentType()
	return rec, nil
}

// ParseFilmography 返回人物页上的作品链接（去掉 query，绝对 URL，保持页面顺序）。
func (s *Source) ParseFilmography(html []byte, pageURL string) ([]string, error) {
	doc, err := parseDoc(html)
	if err != nil {
		return nil, err
	}
	hrefs := s.extractor().List(doc, filmographyField, nil)
	base := s.baseOf(pageURL)
	out := make([]string, 0, len(hrefs))
	for _, h := range hrefs {
		out = append(out, resolveURL(base, h))
	}
	return out, nil
}

// baseOf 取 pageURL 的 scheme://host，解析失败时回退 BaseURL。
func (s *Source) baseOf(pageURL string) string {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s.baseURL() + "/"
	}
	return u.Scheme + "://" + u.Host + "/"
}

func parseDoc(html []byte) (*goquery.Document, error) {
	if len(html) == 0 {
		return nil, errors.New("html 为空")
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(html))
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
