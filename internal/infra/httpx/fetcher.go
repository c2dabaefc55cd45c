package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Response 是一次 GET 的结果（不对状态码做判断，由 provider 决定如何解释）。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL 是最终落地的 URL（跟随重定向之后）。
	URL string
}

// Fetcher 是显式注入到 provider 的抓取器；限速/代理/UA 都在其底层 Transport 中。
type Fetcher struct {
	rc *resty.Client
}

func NewFetcher(opts Options) (*Fetcher, error) {
	c, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	return NewFetcherWithClient(c), nil
}

// NewFetcherWithClient 允许测试注入自定义 http.Client。
func NewFetcherWithClient(c *http.Client) *Fetcher {
	rc := resty.NewWithClient(c).
		SetRetryCount(0).
		SetHeaders(map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		})
	return &Fetcher{rc: rc}
}

func (f *Fetcher) Get(ctx context.Context, u string) (*Response, error) {
	if f == nil || f.rc == nil {
		return nil, errors.New("fetcher 未初始化")
	}
	resp, err := f.rc.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, err
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		URL:        u,
	}
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		out.URL = raw.Request.URL.String()
	}
	return out, nil
}
