package collector

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	baseHot        = 100000
	hotRankCeiling = 50
)

// GenerateHot 返回展示用的热度值：上游给了正数就原样使用，否则按排名合成。
// rank 为上游原始顺序中的 0 基位置；合成值只是展示用的启发式数字，不代表真实热度。
func GenerateHot(originalHot float64, rank int) float64 {
	if originalHot > 0 {
		return originalHot
	}
	return baseHot * float64(max(1, hotRankCeiling-rank))
}

// queryUnescaper 把 QueryEscape 的结果调整为浏览器 encodeURIComponent 的形式：
// 空格为 %20，!'()* 保持原样
var queryUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// SearchURL 用标题填充平台搜索模板中的 {query} 占位符
func SearchURL(template, query string) string {
	escaped := queryUnescaper.Replace(url.QueryEscape(query))
	return strings.ReplaceAll(template, "{query}", escaped)
}

// rawItem 上游聚合接口返回的单条数据，不同平台字段名不统一
type rawItem struct {
	Title    string `json:"title"`
	Name     string `json:"name"`
	Word     string `json:"word"`
	URL      string `json:"url"`
	Link     string `json:"link"`
	Hot      any    `json:"hot"`
	HotValue any    `json:"hot_value"`
}

// title 优先级：title > name > word
func (r rawItem) title() string {
	for _, s := range []string{r.Title, r.Name, r.Word} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// hot 优先级：hot > hot_value，缺失或非正数视为没有
func (r rawItem) hot() float64 {
	if h := parseHot(r.Hot); h > 0 {
		return h
	}
	return parseHot(r.HotValue)
}

func (r rawItem) link() string {
	if u := strings.TrimSpace(r.URL); u != "" {
		return u
	}
	return strings.TrimSpace(r.Link)
}

// buildTopics 把原始条目转成有序的 Topic 列表。
// 空标题的条目被丢弃，rank 保持连续；热度合成仍使用上游原始位置。
func buildTopics(platform, searchTemplate string, items []rawItem, now time.Time) PlatformTopics {
	topics := make([]Topic, 0, len(items))
	for i, it := range items {
		title := it.title()
		if title == "" {
			continue
		}
		link := it.link()
		if link == "" {
			link = SearchURL(searchTemplate, title)
		}
		topics = append(topics, Topic{
			Title: title,
			URL:   link,
			Hot:   GenerateHot(it.hot(), i),
			Rank:  len(topics) + 1,
		})
	}
	return PlatformTopics{Platform: platform, Topics: topics, FetchedAt: now}
}

// parseHot 兼容 JSON 数字与字符串两种热度表示
func parseHot(v any) float64 {
	switch h := v.(type) {
	case float64:
		if h > 0 {
			return h
		}
	case string:
		return parseHotText(h)
	}
	return 0
}

// parseHotText 解析 "1,234,567"、"123万"、"4.5万热度" 之类的文本，无法解析时返回 0
func parseHotText(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	end := 0
	for ; end < len(s); end++ {
		if (s[end] < '0' || s[end] > '9') && s[end] != '.' {
			break
		}
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || n <= 0 {
		return 0
	}
	rest := strings.TrimSpace(s[end:])
	switch {
	case strings.HasPrefix(rest, "亿"):
		n *= 100000000
	case strings.HasPrefix(rest, "万"), strings.HasPrefix(rest, "w"), strings.HasPrefix(rest, "W"):
		n *= 10000
	}
	return n
}
