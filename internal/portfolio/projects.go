// Package portfolio 负责作品集相关文件的编码：抓取结果（projects JSON / Markdown）与待补全的作品集条目。
package portfolio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/John-Robertt/creditsync/internal/domain"
)

type projectsDoc struct {
	Projects []domain.ProjectRecord `json:"projects"`
}

// EncodeProjects 输出 {"projects": [...]}：UTF-8、两空格缩进、非 ASCII 与 &<> 原样写出。
func EncodeProjects(recs []domain.ProjectRecord) ([]byte, error) {
	if recs == nil {
		recs = []domain.ProjectRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(projectsDoc{Projects: recs}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderMarkdown 把抓取结果渲染为便于人工校对的 Markdown。
// 缺省值（sentinel）不单独标注；空列表字段整行省略。
func RenderMarkdown(person string, recs []domain.ProjectRecord) []byte {
	var b strings.Builder
	if strings.TrimSpace(person) != "" {
		fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(person))
	}
	for i, r := range recs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## [%s](%s) (%s)\n\n", r.Title, r.URL, r.Year)
		line(&b, "Type", string(r.ContentType))
		line(&b, "Rating", r.Rating)
		line(&b, "Runtime", r.Runtime)
		list(&b, "Genres", r.Genres)
		if r.ContentType == domain.ContentTVSeries {
			list(&b, "Creators", r.Creators)
			line(&b, "Episodes", r.Episodes)
		} else {
			list(&b, "Directors", r.Directors)
		}
		list(&b, "Writers", r.Writers)
		list(&b, "Cast", r.Cast)
		line(&b, "Production company", r.ProductionCompany)
		line(&b, "Country", r.Country)
		line(&b, "Language", r.Language)
		line(&b, "Release date", r.ReleaseDate)
		line(&b, "Budget", r.Budget)
		line(&b, "Box office", r.BoxOffice)
		if r.Plot != "" {
			fmt.Fprintf(&b, "\n> %s\n", r.Plot)
		}
	}
	return []byte(b.String())
}

func line(b *strings.Builder, k, v string) {
	if strings.TrimSpace(v) == "" {
		return
	}
	fmt.Fprintf(b, "- **%s:** %s\n", k, v)
}

func list(b *strings.Builder, k string, vs []string) {
	if len(vs) == 0 {
		return
	}
	line(b, k, strings.Join(vs, ", "))
}
