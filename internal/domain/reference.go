package domain

// ReferenceRecord 是参考清单中的一行（片名/年份/备注）。
// 解析后不再修改。
type ReferenceRecord struct {
	Title string `json:"title"`
	Year  string `json:"year"` // "2019" / "2019-2021" / "2019-"
	Note  string `json:"note"`
}

// Candidate 是一次搜索返回的候选条目（按站点返回顺序）。
type Candidate struct {
	Title    string `json:"title"`
	YearText string `json:"year_text"`
	URL      string `json:"url"`
}

// ResolvedRecord 是 ReferenceRecord 经过搜索 + 确认后的结果。
//
// 不变量：CanonicalID 总是由 CanonicalURL 提取得到。
type ResolvedRecord struct {
	ReferenceRecord

	CanonicalURL string  `json:"canonical_url"`
	CanonicalID  TitleID `json:"canonical_id"`
	Verified     bool    `json:"verified"`
}
