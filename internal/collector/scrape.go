package collector

import (
	"context"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultScrapeTimeout = 5 * time.Second

// ScrapeRule 描述如何从一个热榜页面中解析条目
type ScrapeRule struct {
	URL   string `yaml:"url"`
	Item  string `yaml:"item"`
	Title string `yaml:"title"`
	// Hot 可选，热度文本所在的选择器
	Hot string `yaml:"hot"`
}

// ScrapeSource 直接抓取平台热榜页面，页面结构可能调整，属于“尽力而为”的解析
type ScrapeSource struct {
	platform       string
	searchTemplate string
	rule           ScrapeRule
	userAgent      string
	now            func() time.Time
}

func NewScrapeSource(platform, searchTemplate, userAgent string, rule ScrapeRule) *ScrapeSource {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &ScrapeSource{
		platform:       platform,
		searchTemplate: searchTemplate,
		rule:           rule,
		userAgent:      userAgent,
		now:            time.Now,
	}
}

func (s *ScrapeSource) Platform() string {
	return s.platform
}

func (s *ScrapeSource) Fetch(ctx context.Context) (PlatformTopics, error) {
	if err := ctx.Err(); err != nil {
		return PlatformTopics{}, &FetchError{Platform: s.platform, Err: err}
	}

	// 每次抓取新建 collector，避免同一 URL 被判定为已访问
	c := colly.NewCollector(colly.UserAgent(s.userAgent))
	timeout := defaultScrapeTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	c.SetRequestTimeout(timeout)

	items := make([]rawItem, 0, 50)
	c.OnHTML(s.rule.Item, func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText(s.rule.Title))
		if title == "" {
			return
		}
		link := ""
		if href := strings.TrimSpace(e.ChildAttr("a", "href")); href != "" {
			link = e.Request.AbsoluteURL(href)
		}
		var hot any
		if s.rule.Hot != "" {
			hot = strings.TrimSpace(e.ChildText(s.rule.Hot))
		}
		items = append(items, rawItem{Title: title, URL: link, Hot: hot})
	})

	var statusCode int
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	if err := c.Visit(s.rule.URL); err != nil {
		return PlatformTopics{}, &FetchError{Platform: s.platform, StatusCode: statusCode, Err: err}
	}
	if len(items) == 0 {
		return PlatformTopics{}, &FetchError{Platform: s.platform, Err: errNoItems}
	}

	return buildTopics(s.platform, s.searchTemplate, items, s.now()), nil
}
