package extract

import (
	"regexp"
	"strings"
)

func NormSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// NormHeader 规范化 "Director:" / "Directors：" 这类标签文本。
func NormHeader(s string) string {
	s = NormSpace(s)
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, "：")
	return strings.TrimSpace(s)
}

// NormList 去空白、去空、去重，并保持输入顺序。
func NormList(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// AfterColon 取最后一个冒号之后的部分（"Budget: $1,000,000" => "$1,000,000"）。
func AfterColon(s string) string {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}

var yearRE = regexp.MustCompile(`\d{4}(?:[-–]\d{4}|[-–])?`)

// FirstYear 取文本中第一个年份/年份区间；en dash 统一为 '-'。
func FirstYear(s string) string {
	m := yearRE.FindString(s)
	return strings.ReplaceAll(m, "–", "-")
}

// Suffix 返回一个给值追加后缀的 Transform。
func Suffix(suffix string) func(string) string {
	return func(s string) string { return s + suffix }
}

// SkipPrefix 返回一个丢弃指定前缀值的 Skip。
func SkipPrefix(prefixes ...string) func(string) bool {
	return func(s string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(s, p) {
				return true
			}
		}
		return false
	}
}
