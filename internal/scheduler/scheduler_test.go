package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/PulseHub/internal/collector"
	"github.com/LJTian/PulseHub/internal/hotlist"
)

type fakeRefresher struct {
	calls int
	snap  hotlist.Snapshot
}

func (f *fakeRefresher) Refresh(ctx context.Context) hotlist.Snapshot {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		panic("refresh must run with a deadline")
	}
	return f.snap
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) Sweep() int {
	f.calls++
	return 0
}

func TestRunOnce(t *testing.T) {
	agg := collector.PlatformTopics{Platform: collector.AggregatedPlatform, Topics: []collector.Topic{{Title: "x y z", Rank: 1}}}
	hub := &fakeRefresher{snap: hotlist.Snapshot{
		Order:      []string{"weibo", "zhihu"},
		Platforms:  map[string]collector.PlatformTopics{"weibo": {Platform: "weibo"}},
		Errors:     map[string]error{"zhihu": errors.New("down")},
		Aggregated: &agg,
	}}

	s, err := New("*/5 * * * *", hub, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	snap := s.RunOnce()
	if hub.calls != 1 {
		t.Fatalf("Refresh calls = %d, want 1", hub.calls)
	}
	if snap.Aggregated == nil || len(snap.Errors) != 1 {
		t.Fatalf("RunOnce should return the refresh snapshot, got %+v", snap)
	}
}

func TestNewRegistersJobs(t *testing.T) {
	if _, err := New("not a cron spec", &fakeRefresher{}, nil); err == nil {
		t.Fatalf("expected error for invalid cron expression")
	}

	s, err := New("*/5 * * * *", &fakeRefresher{}, &fakeSweeper{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if got := len(s.cron.Entries()); got != 2 {
		t.Fatalf("expected refresh and sweep jobs, got %d", got)
	}

	s, _ = New("*/5 * * * *", &fakeRefresher{}, nil)
	if got := len(s.cron.Entries()); got != 1 {
		t.Fatalf("expected only the refresh job without a sweeper, got %d", got)
	}
}

// blockingRefresher 每次刷新都阻塞到 release 被关闭
type blockingRefresher struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingRefresher) Refresh(context.Context) hotlist.Snapshot {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	<-b.release
	return hotlist.Snapshot{}
}

func TestFirstRunSkipsOverlapAndStopWaits(t *testing.T) {
	hub := &blockingRefresher{started: make(chan struct{}), release: make(chan struct{})}
	s, err := New("@every 1h", hub, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	s.delay = 0
	s.Start()

	select {
	case <-hub.started:
	case <-time.After(time.Second):
		t.Fatalf("first refresh did not start")
	}

	// 首轮刷新仍在执行，同一 job 再次触发应被跳过
	s.refresh.Run()
	if got := hub.calls.Load(); got != 1 {
		t.Fatalf("overlapping run should be skipped, calls = %d", got)
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatalf("Stop returned while the first refresh was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(hub.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("Stop did not return after the first refresh finished")
	}
}

func TestStopCancelsPendingFirstRun(t *testing.T) {
	hub := &fakeRefresher{}
	s, err := New("@every 1h", hub, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	s.delay = time.Hour
	s.Start()
	s.Stop()
	if hub.calls != 0 {
		t.Fatalf("pending first run should be cancelled, calls = %d", hub.calls)
	}
}
