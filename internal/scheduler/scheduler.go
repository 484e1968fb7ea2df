package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/LJTian/PulseHub/internal/hotlist"
	"github.com/robfig/cron/v3"
)

const (
	startupDelay  = 3 * time.Second
	refreshBudget = 2 * time.Minute
	sweepSpec     = "@every 10m"
)

// Refresher 执行一轮全平台刷新
type Refresher interface {
	Refresh(ctx context.Context) hotlist.Snapshot
}

// Sweeper 回收已过期的缓存条目，只有进程内缓存需要
type Sweeper interface {
	Sweep() int
}

type Scheduler struct {
	cron    *cron.Cron
	hub     Refresher
	refresh cron.Job
	delay   time.Duration

	mu    sync.Mutex
	first *time.Timer
	wg    sync.WaitGroup
}

// New 按 cron 表达式周期性刷新，让过期的平台在用户请求之前就重新回源；sweeper 可以为 nil
func New(spec string, hub Refresher, sweeper Sweeper) (*Scheduler, error) {
	c := cron.New()
	skip := cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger))

	s := &Scheduler{
		cron:  c,
		hub:   hub,
		delay: startupDelay,
	}
	// 定时任务与首轮刷新共用同一个包装后的 job，互相之间也不会重叠
	s.refresh = skip.Then(cron.FuncJob(s.runOnce))

	if _, err := c.AddJob(spec, s.refresh); err != nil {
		return nil, err
	}
	if sweeper != nil {
		if _, err := c.AddJob(sweepSpec, skip.Then(cron.FuncJob(func() {
			if n := sweeper.Sweep(); n > 0 {
				log.Printf("cache sweep: removed %d expired entries", n)
			}
		}))); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 稍后执行首轮刷新，避免与进程启动争抢资源
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wg.Add(1)
	s.first = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.refresh.Run()
	})
}

// Stop 停止调度并等待正在执行的任务结束，包括尚未触发或正在执行的首轮刷新
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.first != nil && s.first.Stop() {
		s.wg.Done()
	}
	s.first = nil
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发刷新
func (s *Scheduler) RunOnce() hotlist.Snapshot {
	return s.runRefresh()
}

func (s *Scheduler) runOnce() {
	s.runRefresh()
}

func (s *Scheduler) runRefresh() hotlist.Snapshot {
	log.Println("start refresh job...")

	ctx, cancel := context.WithTimeout(context.Background(), refreshBudget)
	defer cancel()

	snap := s.hub.Refresh(ctx)
	for _, id := range snap.Order {
		if err, failed := snap.Errors[id]; failed {
			log.Printf("%s failed: %v", id, err)
			continue
		}
		log.Printf("%s done, topics=%d", id, len(snap.Platforms[id].Topics))
	}
	aggregated := 0
	if snap.Aggregated != nil {
		aggregated = len(snap.Aggregated.Topics)
	}
	log.Printf("refresh job done: ok=%d failed=%d aggregated=%d", len(snap.Platforms), len(snap.Errors), aggregated)
	return snap
}
