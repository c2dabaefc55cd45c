// Package corpus 读写参考清单（每行一个 "- 片名 (年份) - 备注"）。
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/John-Robertt/creditsync/internal/domain"
)

const yearPattern = `(\d{4}(?:-(?:\d{4})?)?)`

var (
	// "- Title (2019) - note"
	plainLineRE = regexp.MustCompile(`^- ([^(]+) \(` + yearPattern + `\)(?: - (.+))?$`)
	// "- [Title](https://...) (2019) - note"：校验输出的回读形态。
	// 片名取到最后一个 "](" 为止，片名里的方括号（"Shtisel [Season 2]"）原样保留。
	linkLineRE = regexp.MustCompile(`^- \[(.+)\]\(([^)\s]+)\) \(` + yearPattern + `\)(?: - (.+))?$`)
)

// ParseLine 解析一行；不符合语法的行返回 ok=false（不报错）。
func ParseLine(line string) (domain.ReferenceRecord, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return domain.ReferenceRecord{}, false
	}

	if m := linkLineRE.FindStringSubmatch(line); m != nil {
		return record(m[1], m[3], m[4])
	}
	if m := plainLineRE.FindStringSubmatch(line); m != nil {
		return record(m[1], m[2], m[3])
	}
	return domain.ReferenceRecord{}, false
}

func record(title, year, note string) (domain.ReferenceRecord, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.ReferenceRecord{}, false
	}
	return domain.ReferenceRecord{
		Title: title,
		Year:  strings.TrimSpace(year),
		Note:  strings.TrimSpace(note),
	}, true
}

// Read 逐行解析 r；skipped 是被静默跳过的非空行数量。
// 只有读取本身失败才返回 error。
func Read(r io.Reader) (records []domain.ReferenceRecord, skipped int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		rec, ok := ParseLine(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				skipped++
			}
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	return records, skipped, nil
}

// ReadFile 读取参考清单文件。文件不可读是唯一会中止整次运行的错误。
func ReadFile(path string) ([]domain.ReferenceRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("读取参考清单失败：%w", err)
	}
	defer f.Close()
	return Read(f)
}

// FormatResolved 生成输出行："- [Title](URL) (Year) - Note"；备注为空时省略 " - Note"。
func FormatResolved(r domain.ResolvedRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- [%s](%s) (%s)", r.Title, r.CanonicalURL, r.Year)
	if note := strings.TrimSpace(r.Note); note != "" {
		b.WriteString(" - ")
		b.WriteString(note)
	}
	return b.String()
}

// Encode 把输出行拼成最终文件内容（每行以 '\n' 结尾）。
func Encode(lines []string) []byte {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
