package collector

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const feedMaxItems = 30

// FeedSource 通过 RSS/Atom 订阅获取平台的最新文章作为热榜，订阅源不提供热度，全部按排名合成
type FeedSource struct {
	platform       string
	feedURL        string
	searchTemplate string
	parser         *gofeed.Parser
	now            func() time.Time
}

func NewFeedSource(platform, feedURL, searchTemplate, userAgent string, timeout time.Duration) *FeedSource {
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = &http.Client{Timeout: timeout}
	return &FeedSource{
		platform:       platform,
		feedURL:        feedURL,
		searchTemplate: searchTemplate,
		parser:         fp,
		now:            time.Now,
	}
}

func (f *FeedSource) Platform() string {
	return f.platform
}

func (f *FeedSource) Fetch(ctx context.Context) (PlatformTopics, error) {
	feed, err := f.parser.ParseURLWithContext(f.feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return PlatformTopics{}, &FetchError{Platform: f.platform, StatusCode: httpErr.StatusCode, Err: err}
		}
		return PlatformTopics{}, &FetchError{Platform: f.platform, Err: err}
	}
	if len(feed.Items) == 0 {
		return PlatformTopics{}, &FetchError{Platform: f.platform, Err: errNoItems}
	}

	items := make([]rawItem, 0, min(len(feed.Items), feedMaxItems))
	for _, it := range feed.Items {
		if len(items) == feedMaxItems {
			break
		}
		items = append(items, rawItem{Title: it.Title, URL: it.Link})
	}
	return buildTopics(f.platform, f.searchTemplate, items, f.now()), nil
}
