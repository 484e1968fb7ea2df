package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	upstreamMaxResponseBytes = 2 << 20 // 2MB
	defaultUpstreamTimeout   = 10 * time.Second
	defaultUserAgent         = "PulseHub/1.0.0"
)

// Upstream 上游聚合接口客户端：固定 base URL、固定超时、固定 User-Agent
type Upstream struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewUpstream(baseURL, userAgent string, timeout time.Duration) *Upstream {
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Upstream{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// upstreamResp 对应 {"code":200,"message":"...","data":[...]}
type upstreamResp struct {
	Data []rawItem `json:"data"`
}

func (u *Upstream) fetchItems(ctx context.Context, platform, endpoint string) ([]rawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+endpoint, nil)
	if err != nil {
		return nil, &FetchError{Platform: platform, Err: err}
	}
	req.Header.Set("User-Agent", u.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, &FetchError{Platform: platform, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Platform:   platform,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, upstreamMaxResponseBytes))
	if err != nil {
		return nil, &FetchError{Platform: platform, Err: fmt.Errorf("read body: %w", err)}
	}

	var data upstreamResp
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &FetchError{Platform: platform, Err: fmt.Errorf("unmarshal: %w", err)}
	}
	return data.Data, nil
}

// LiveSource 通过上游聚合接口拉取某个平台的热榜
type LiveSource struct {
	platform       string
	endpoint       string
	searchTemplate string
	upstream       *Upstream
	now            func() time.Time
}

func NewLiveSource(u *Upstream, platform, endpoint, searchTemplate string) *LiveSource {
	return &LiveSource{
		platform:       platform,
		endpoint:       endpoint,
		searchTemplate: searchTemplate,
		upstream:       u,
		now:            time.Now,
	}
}

func (l *LiveSource) Platform() string {
	return l.platform
}

func (l *LiveSource) Fetch(ctx context.Context) (PlatformTopics, error) {
	items, err := l.upstream.fetchItems(ctx, l.platform, l.endpoint)
	if err != nil {
		return PlatformTopics{}, err
	}
	return buildTopics(l.platform, l.searchTemplate, items, l.now()), nil
}
