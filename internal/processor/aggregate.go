package processor

import (
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LJTian/PulseHub/internal/collector"
)

const (
	// 标题归一化后不超过 2 个字符的条目太短，容易误合并，不参与聚合
	minTitleRunes = 3
	// 至少出现在 2 个不同平台才算跨平台热点
	minPlatforms  = 2
	maxAggregated = 10

	aggregatedSearchTemplate = "https://www.baidu.com/s?wd={query}"
)

// NormalizeTitle 去掉首尾空白并转小写，归一化后相同的标题视为同一话题
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

type accumulator struct {
	title     string
	platforms []string
	hot       float64
	url       string
}

// Aggregate 在一轮刷新拿到的各平台热榜上计算跨平台热榜。
// batch 的顺序决定同分条目的先后；拉取失败的平台不应出现在 batch 中。
// 没有任何话题满足条件时返回 false，这不是错误。
// 纯函数：同一个 batch 多次调用结果完全一致。
func Aggregate(batch []collector.PlatformTopics) (collector.PlatformTopics, bool) {
	index := make(map[string]*accumulator)
	var order []*accumulator
	var fetchedAt time.Time

	for _, pt := range batch {
		if pt.FetchedAt.After(fetchedAt) {
			fetchedAt = pt.FetchedAt
		}
		for _, t := range pt.Topics {
			title := NormalizeTitle(t.Title)
			if utf8.RuneCountInString(title) < minTitleRunes {
				continue
			}
			hot := max(t.Hot, 0)

			acc, ok := index[title]
			if !ok {
				acc = &accumulator{
					title:     title,
					platforms: []string{pt.Platform},
					hot:       hot,
					url:       t.URL,
				}
				index[title] = acc
				order = append(order, acc)
				continue
			}
			// 同一平台重复出现同一标题不重复计数；url 保留第一次看到的
			if !slices.Contains(acc.platforms, pt.Platform) {
				acc.platforms = append(acc.platforms, pt.Platform)
			}
			acc.hot = max(acc.hot, hot)
		}
	}

	matched := make([]*accumulator, 0, len(order))
	for _, acc := range order {
		if len(acc.platforms) >= minPlatforms {
			matched = append(matched, acc)
		}
	}
	if len(matched) == 0 {
		return collector.PlatformTopics{}, false
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if len(matched[i].platforms) != len(matched[j].platforms) {
			return len(matched[i].platforms) > len(matched[j].platforms)
		}
		return matched[i].hot > matched[j].hot
	})
	if len(matched) > maxAggregated {
		matched = matched[:maxAggregated]
	}

	topics := make([]collector.Topic, 0, len(matched))
	for i, acc := range matched {
		link := acc.url
		if link == "" {
			link = collector.SearchURL(aggregatedSearchTemplate, acc.title)
		}
		topics = append(topics, collector.Topic{
			Title:           acc.title,
			URL:             link,
			Hot:             acc.hot,
			Rank:            i + 1,
			SourcePlatforms: slices.Clone(acc.platforms),
		})
	}

	return collector.PlatformTopics{
		Platform:  collector.AggregatedPlatform,
		Topics:    topics,
		FetchedAt: fetchedAt,
	}, true
}
