package domain

// ContentType 区分电影与剧集。
type ContentType string

const (
	ContentFilm     ContentType = "Film"
	ContentTVSeries ContentType = "TVSeries"
)

// 字段缺省值（sentinel）：区分“没找到”与“找到但为空”。
const (
	SentinelUnknown      = "Unknown"
	SentinelRating       = "N/A"
	SentinelPlot         = "No summary available"
	SentinelNotAvailable = "Not Available"
)

// ProjectRecord 是从详情页逐字段抽取得到的结构化记录。
//
// 约束：
// - 每个字段独立回退到 sentinel；部分缺失的记录是合法的
// - Directors 与 Creators 互斥（由 ContentType 决定），Episodes 仅剧集填写
type ProjectRecord struct {
	ID     string  `json:"id"`
	IMDbID TitleID `json:"imdb_id"`
	URL    string  `json:"imdb_url"`

	Title   string   `json:"title"`
	Year    string   `json:"year"`
	Rating  string   `json:"rating"`
	Genres  []string `json:"genres"`
	Runtime string   `json:"runtime"`
	Plot    string   `json:"plot"`

	Language          string `json:"language"`
	Country           string `json:"country"`
	ProductionCompany string `json:"production_company"`
	PosterURL         string `json:"poster_url"`

	Cast      []string `json:"cast"`
	Directors []string `json:"directors,omitempty"`
	Creators  []string `json:"creators,omitempty"`
	Writers   []string `json:"writers"`

	BoxOffice   string `json:"box_office"`
	Budget      string `json:"budget"`
	ReleaseDate string `json:"release_date"`
	Episodes    string `json:"episodes,omitempty"`

	ContentType ContentType `json:"content_type"`
}

// MaxCast 是 cast 列表的上限。
const MaxCast = 5

// ClassifyContent 按启发式判定内容类型：
// episodes 非缺省或 creators 非空 => TVSeries，否则 Film。
//
// 注意：这是启发式而非保证；误匹配的 creators 会把电影判成剧集。
func ClassifyContent(episodes string, creators []string) ContentType {
	if episodes != "" || len(creators) > 0 {
		return ContentTVSeries
	}
	return ContentFilm
}

// ApplyContentType 根据 ContentType 强制 Directors/Creators/Episodes 的互斥关系。
func (p *ProjectRecord) ApplyContentType() {
	p.ContentType = ClassifyContent(p.Episodes, p.Creators)
	switch p.ContentType {
	case ContentTVSeries:
		p.Directors = nil
		if p.Creators == nil {
			p.Creators = []string{}
		}
	default:
		p.Creators = nil
		p.Episodes = ""
		if p.Directors == nil {
			p.Directors = []string{}
		}
	}
}
