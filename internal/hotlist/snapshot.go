package hotlist

import "github.com/LJTian/PulseHub/internal/collector"

// Snapshot 一轮刷新的结果。拉取失败的平台只出现在 Errors 中；
// Aggregated 为 nil 表示本轮没有跨平台热榜，看板不展示该卡片即可。
type Snapshot struct {
	Order      []string
	Platforms  map[string]collector.PlatformTopics
	Errors     map[string]error
	Aggregated *collector.PlatformTopics
}

// Cards 看板使用的结构：平台 id -> 热榜，有聚合结果时附带 "aggregated"
func (s Snapshot) Cards() map[string]collector.PlatformTopics {
	out := make(map[string]collector.PlatformTopics, len(s.Platforms)+1)
	for id, pt := range s.Platforms {
		out[id] = pt
	}
	if s.Aggregated != nil {
		out[collector.AggregatedPlatform] = *s.Aggregated
	}
	return out
}

// ErrorMessages 便于序列化输出的失败原因
func (s Snapshot) ErrorMessages() map[string]string {
	out := make(map[string]string, len(s.Errors))
	for id, err := range s.Errors {
		out[id] = err.Error()
	}
	return out
}
