package collector

import (
	"context"
	"errors"
	"log"
	"time"
)

const defaultFallbackBudget = 5 * time.Second

// StaticItem 静态兜底数据中的一条
type StaticItem struct {
	Title string  `yaml:"title" json:"title"`
	Hot   float64 `yaml:"hot" json:"hot"`
}

// StaticSource 没有可用上游的平台使用固定列表，每次 Fetch 都产出一份新的结果
type StaticSource struct {
	platform       string
	searchTemplate string
	items          []rawItem
	now            func() time.Time
}

func NewStaticSource(platform, searchTemplate string, items []StaticItem) *StaticSource {
	raw := make([]rawItem, 0, len(items))
	for _, it := range items {
		raw = append(raw, rawItem{Title: it.Title, Hot: it.Hot})
	}
	return &StaticSource{
		platform:       platform,
		searchTemplate: searchTemplate,
		items:          raw,
		now:            time.Now,
	}
}

func (s *StaticSource) Platform() string {
	return s.platform
}

func (s *StaticSource) Fetch(context.Context) (PlatformTopics, error) {
	return buildTopics(s.platform, s.searchTemplate, s.items, s.now()), nil
}

// FallbackSource 主数据源失败时使用备用数据源。
// 主数据源因超时失败时截止时间已过，备用数据源另外获得 budget 长度的时间。
type FallbackSource struct {
	primary  TopicSource
	fallback TopicSource
	budget   time.Duration
}

func NewFallbackSource(primary, fallback TopicSource) *FallbackSource {
	return &FallbackSource{primary: primary, fallback: fallback, budget: defaultFallbackBudget}
}

// WithBudget 设置主数据源超时后备用数据源的时间预算
func (f *FallbackSource) WithBudget(d time.Duration) *FallbackSource {
	if d > 0 {
		f.budget = d
	}
	return f
}

func (f *FallbackSource) Platform() string {
	return f.primary.Platform()
}

func (f *FallbackSource) Fetch(ctx context.Context) (PlatformTopics, error) {
	res, err := f.primary.Fetch(ctx)
	if err == nil {
		return res, nil
	}
	log.Printf("fetch %s failed, use fallback: %v", f.primary.Platform(), err)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		fallbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.budget)
		defer cancel()
		return f.fallback.Fetch(fallbackCtx)
	}
	return f.fallback.Fetch(ctx)
}
