package collector

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AggregatedPlatform 聚合热榜使用的平台标识，不能被真实平台占用
const AggregatedPlatform = "aggregated"

// errNoItems 页面或订阅源解析不到任何条目，视为失败以便走兜底数据源
var errNoItems = errors.New("no items")

// Topic 某个平台热榜中的一条
type Topic struct {
	Title string  `json:"title"`
	URL   string  `json:"url,omitempty"`
	Hot   float64 `json:"hot"`
	// Rank 从 1 开始，按产出时的顺序分配，不取上游的值
	Rank int `json:"rank"`
	// SourcePlatforms 只在聚合热榜中填充
	SourcePlatforms []string `json:"platforms,omitempty"`
}

// PlatformTopics 某个平台在某一时刻的热榜结果，返回后视为不可变
type PlatformTopics struct {
	Platform  string    `json:"platform"`
	Topics    []Topic   `json:"topics"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// TopicSource 抽象每一个平台的数据来源：上游聚合接口、RSS、页面抓取或静态兜底数据
type TopicSource interface {
	Platform() string
	Fetch(ctx context.Context) (PlatformTopics, error)
}

// FetchError 单个平台拉取失败（超时、非 2xx、网络错误、解析失败）
type FetchError struct {
	Platform   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Platform, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Platform, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
