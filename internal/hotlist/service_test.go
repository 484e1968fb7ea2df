package hotlist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/PulseHub/internal/cache"
	"github.com/LJTian/PulseHub/internal/collector"
)

type fakeSource struct {
	platform string
	titles   []string
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeSource) Platform() string { return f.platform }

func (f *fakeSource) Fetch(ctx context.Context) (collector.PlatformTopics, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return collector.PlatformTopics{}, &collector.FetchError{Platform: f.platform, Err: ctx.Err()}
		}
	}
	if f.err != nil {
		return collector.PlatformTopics{}, f.err
	}
	topics := make([]collector.Topic, 0, len(f.titles))
	for i, title := range f.titles {
		topics = append(topics, collector.Topic{Title: title, Hot: collector.GenerateHot(0, i), Rank: i + 1})
	}
	return collector.PlatformTopics{Platform: f.platform, Topics: topics, FetchedAt: time.Now()}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(sources ...collector.TopicSource) (*Service, *clock) {
	clk := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	mem := cache.NewMemory[collector.PlatformTopics]().WithClock(clk.Now)
	return New(mem, sources), clk
}

func TestGetUsesCacheUntilExpiry(t *testing.T) {
	ctx := context.Background()
	weibo := &fakeSource{platform: "weibo", titles: []string{"topic one"}}
	s, clk := newTestService(weibo)

	first, err := s.Get(ctx, "weibo")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	second, err := s.Get(ctx, "weibo")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if weibo.calls.Load() != 1 {
		t.Fatalf("cache hit must not call upstream, calls = %d", weibo.calls.Load())
	}
	if !first.FetchedAt.Equal(second.FetchedAt) {
		t.Fatalf("cached copy should be returned")
	}

	clk.Advance(DefaultTTL)
	if _, err := s.Get(ctx, "weibo"); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if weibo.calls.Load() != 2 {
		t.Fatalf("expired entry should be re-fetched, calls = %d", weibo.calls.Load())
	}
}

func TestGetFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	down := &fakeSource{platform: "douyin", err: &collector.FetchError{Platform: "douyin", StatusCode: 502}}
	s, _ := newTestService(down)

	for i := 0; i < 3; i++ {
		_, err := s.Get(ctx, "douyin")
		var fe *collector.FetchError
		if !errors.As(err, &fe) || fe.StatusCode != 502 {
			t.Fatalf("expected FetchError, got %v", err)
		}
	}
	if down.calls.Load() != 3 {
		t.Fatalf("failed fetch must be retried on every request, calls = %d", down.calls.Load())
	}
}

func TestGetUnknownPlatform(t *testing.T) {
	s, _ := newTestService()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("err = %v, want ErrUnknownPlatform", err)
	}
	if _, err := s.Reload(context.Background(), "nope"); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("err = %v, want ErrUnknownPlatform", err)
	}
}

func TestReloadBypassesCache(t *testing.T) {
	ctx := context.Background()
	zhihu := &fakeSource{platform: "zhihu", titles: []string{"question"}}
	s, _ := newTestService(zhihu)

	if _, err := s.Get(ctx, "zhihu"); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if _, err := s.Reload(ctx, "zhihu"); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if _, err := s.Get(ctx, "zhihu"); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if zhihu.calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", zhihu.calls.Load())
	}
}

func TestGetCoalescesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	slow := &fakeSource{platform: "bilibili", titles: []string{"video"}, delay: 50 * time.Millisecond}
	s, _ := newTestService(slow)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Get(ctx, "bilibili"); err != nil {
				t.Errorf("Get error: %v", err)
			}
		}()
	}
	wg.Wait()
	if slow.calls.Load() != 1 {
		t.Fatalf("concurrent misses should share one upstream call, calls = %d", slow.calls.Load())
	}
}

func TestCallerCancelDoesNotFailSharedFetch(t *testing.T) {
	weibo := &fakeSource{platform: "weibo", titles: []string{"shared"}, delay: 100 * time.Millisecond}
	s, _ := newTestService(weibo)

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Get(shortCtx, "weibo")
		firstErr <- err
	}()
	// 让第一个调用方先进入回源
	time.Sleep(5 * time.Millisecond)

	pt, err := s.Get(context.Background(), "weibo")
	if err != nil {
		t.Fatalf("waiting caller should not inherit another caller's cancel: %v", err)
	}
	if len(pt.Topics) != 1 {
		t.Fatalf("unexpected topics: %+v", pt.Topics)
	}
	if err := <-firstErr; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("first caller err = %v, want its own deadline", err)
	}

	if _, err := s.Get(context.Background(), "weibo"); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if weibo.calls.Load() != 1 {
		t.Fatalf("shared fetch should be cached once, calls = %d", weibo.calls.Load())
	}
}

func TestFetchTimeoutOnlyFailsThatPlatform(t *testing.T) {
	ctx := context.Background()
	hung := &fakeSource{platform: "toutiao", titles: []string{"late"}, delay: time.Second}
	fast := &fakeSource{platform: "baidu", titles: []string{"quick"}}

	clk := &clock{now: time.Now()}
	mem := cache.NewMemory[collector.PlatformTopics]().WithClock(clk.Now)
	s := New(mem, []collector.TopicSource{hung, fast}, WithFetchTimeout(20*time.Millisecond))

	snap := s.Refresh(ctx)
	if _, failed := snap.Errors["toutiao"]; !failed {
		t.Fatalf("slow platform should time out")
	}
	if _, ok := snap.Platforms["baidu"]; !ok {
		t.Fatalf("fast platform should succeed")
	}
}

func TestRefreshPartialFailureStillAggregates(t *testing.T) {
	ctx := context.Background()
	weibo := &fakeSource{platform: "weibo", titles: []string{"Xiaomi 17", "weibo only"}}
	douyin := &fakeSource{platform: "douyin", titles: []string{"xiaomi 17 "}}
	zhihu := &fakeSource{platform: "zhihu", err: errors.New("boom")}
	s, _ := newTestService(weibo, douyin, zhihu)

	snap := s.Refresh(ctx)

	wantOrder := []string{"weibo", "douyin", "zhihu"}
	for i, id := range wantOrder {
		if snap.Order[i] != id {
			t.Fatalf("Order = %v, want %v", snap.Order, wantOrder)
		}
	}
	if len(snap.Platforms) != 2 || len(snap.Errors) != 1 {
		t.Fatalf("platforms=%d errors=%d", len(snap.Platforms), len(snap.Errors))
	}
	if snap.Aggregated == nil || len(snap.Aggregated.Topics) != 1 {
		t.Fatalf("expected one aggregated topic, got %+v", snap.Aggregated)
	}
	got := snap.Aggregated.Topics[0]
	if got.Title != "xiaomi 17" || len(got.SourcePlatforms) != 2 || got.Hot != 100000*50 {
		t.Fatalf("unexpected aggregated topic: %+v", got)
	}

	cards := snap.Cards()
	if _, ok := cards["zhihu"]; ok {
		t.Fatalf("failed platform must be absent from cards")
	}
	if _, ok := cards[collector.AggregatedPlatform]; !ok {
		t.Fatalf("aggregated card missing")
	}
	if msg := snap.ErrorMessages()["zhihu"]; msg != "boom" {
		t.Fatalf("error message = %q", msg)
	}
}

func TestAggregatedAbsentIsNotAnError(t *testing.T) {
	a := &fakeSource{platform: "a", titles: []string{"nothing shared"}}
	b := &fakeSource{platform: "b", titles: []string{"different"}}
	s, _ := newTestService(a, b)

	if _, ok := s.Aggregated(context.Background()); ok {
		t.Fatalf("expected no aggregated view")
	}
	snap := s.Refresh(context.Background())
	if _, ok := snap.Cards()[collector.AggregatedPlatform]; ok {
		t.Fatalf("aggregated card should be absent")
	}
}

func TestPlatformsKeepsRegistrationOrder(t *testing.T) {
	s, _ := newTestService(&fakeSource{platform: "b"}, &fakeSource{platform: "a"})
	got := s.Platforms()
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("Platforms = %v", got)
	}
}
