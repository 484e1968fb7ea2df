// Package hotlist 组合缓存、各平台数据源与聚合逻辑，对外提供“按平台取热榜”和“跨平台热榜”两类查询。
package hotlist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/PulseHub/internal/cache"
	"github.com/LJTian/PulseHub/internal/collector"
	"github.com/LJTian/PulseHub/internal/processor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL          = 30 * time.Minute
	DefaultFetchTimeout = 10 * time.Second
)

var ErrUnknownPlatform = errors.New("unknown platform")

type Service struct {
	cache   cache.Cache[collector.PlatformTopics]
	sources []collector.TopicSource
	index   map[string]collector.TopicSource
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
}

type Option func(*Service)

// WithTTL 每个平台结果的缓存时长
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithFetchTimeout 单个平台回源的超时，超时只算该平台失败
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New 按 sources 的顺序注册平台，该顺序同时决定聚合时的遍历顺序
func New(c cache.Cache[collector.PlatformTopics], sources []collector.TopicSource, opts ...Option) *Service {
	s := &Service{
		cache:   c,
		sources: sources,
		index:   make(map[string]collector.TopicSource, len(sources)),
		ttl:     DefaultTTL,
		timeout: DefaultFetchTimeout,
	}
	for _, src := range sources {
		s.index[src.Platform()] = src
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Platforms 返回已注册的平台标识，保持注册顺序
func (s *Service) Platforms() []string {
	ids := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		ids = append(ids, src.Platform())
	}
	return ids
}

// Get 先查缓存，未命中再回源；回源成功写入缓存，失败不缓存，下次请求会重新回源
func (s *Service) Get(ctx context.Context, platform string) (collector.PlatformTopics, error) {
	src, ok := s.index[platform]
	if !ok {
		return collector.PlatformTopics{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	if cached, ok := s.cache.Get(ctx, cache.Key(platform)); ok {
		return cached, nil
	}
	return s.load(ctx, src)
}

// Reload 跳过缓存读取直接回源（看板上单个卡片的手动刷新），成功后同样写入缓存
func (s *Service) Reload(ctx context.Context, platform string) (collector.PlatformTopics, error) {
	src, ok := s.index[platform]
	if !ok {
		return collector.PlatformTopics{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return s.load(ctx, src)
}

// load 同一平台并发未命中时只回源一次。回源不随某个调用方取消，只受 s.timeout 约束；
// 每个调用方仍可以在自己的 ctx 结束时提前返回。
func (s *Service) load(ctx context.Context, src collector.TopicSource) (collector.PlatformTopics, error) {
	key := cache.Key(src.Platform())
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(detached, s.timeout)
		defer cancel()

		res, err := src.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(detached, key, res, s.ttl)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return collector.PlatformTopics{}, &collector.FetchError{Platform: src.Platform(), Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			return collector.PlatformTopics{}, r.Err
		}
		return r.Val.(collector.PlatformTopics), nil
	}
}

// Refresh 并发获取所有平台（命中缓存或回源），全部结束后在成功的结果上计算聚合热榜。
// 单个平台失败不影响其它平台，也不影响聚合。
func (s *Service) Refresh(ctx context.Context) Snapshot {
	results := make([]collector.PlatformTopics, len(s.sources))
	errs := make([]error, len(s.sources))

	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			res, err := s.Get(ctx, src.Platform())
			if err != nil {
				log.Printf("fetch %s error: %v", src.Platform(), err)
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	snap := Snapshot{
		Platforms: make(map[string]collector.PlatformTopics, len(s.sources)),
		Errors:    make(map[string]error),
	}
	batch := make([]collector.PlatformTopics, 0, len(s.sources))
	for i, src := range s.sources {
		id := src.Platform()
		snap.Order = append(snap.Order, id)
		if errs[i] != nil {
			snap.Errors[id] = errs[i]
			continue
		}
		snap.Platforms[id] = results[i]
		batch = append(batch, results[i])
	}
	if agg, ok := processor.Aggregate(batch); ok {
		snap.Aggregated = &agg
	}
	return snap
}

// Aggregated 跨平台热榜；没有满足条件的话题时返回 false
func (s *Service) Aggregated(ctx context.Context) (collector.PlatformTopics, bool) {
	snap := s.Refresh(ctx)
	if snap.Aggregated == nil {
		return collector.PlatformTopics{}, false
	}
	return *snap.Aggregated, true
}
