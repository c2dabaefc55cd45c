package domain

import (
	"regexp"
	"strings"
)

// TitleID 是片目在远端数据库中的唯一主键（形如 tt1234567）。
//
// 约束：只接受规范形态；从 URL 中提取时同样要求完整匹配 tt + 数字。
type TitleID string

var (
	titleIDRE    = regexp.MustCompile(`^tt[0-9]{5,10}$`)
	titleIDURLRE = regexp.MustCompile(`/title/(tt[0-9]{5,10})(?:[/?#]|$)`)
)

// ParseTitleID 校验并解析规范化后的 title id。
func ParseTitleID(s string) (TitleID, bool) {
	s = strings.TrimSpace(s)
	if !titleIDRE.MatchString(s) {
		return "", false
	}
	return TitleID(s), true
}

// TitleIDFromURL 从详情页 URL（绝对或相对）中提取 title id。
// 例如 "/title/tt0111161/?ref_=fn_al_tt_1" => tt0111161。
func TitleIDFromURL(u string) (TitleID, bool) {
	m := titleIDURLRE.FindStringSubmatch(strings.TrimSpace(u))
	if len(m) < 2 {
		return "", false
	}
	return TitleID(m[1]), true
}
