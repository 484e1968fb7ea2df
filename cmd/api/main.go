package main

import (
	"log"
	"net/http"
	"path/filepath"

	"github.com/LJTian/PulseHub/internal/api"
	"github.com/LJTian/PulseHub/internal/cache"
	"github.com/LJTian/PulseHub/internal/collector"
	"github.com/LJTian/PulseHub/internal/config"
	"github.com/LJTian/PulseHub/internal/hotlist"
	"github.com/LJTian/PulseHub/internal/scheduler"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	defs, err := collector.LoadPlatforms(cfg.PlatformsFile)
	if err != nil {
		log.Fatalf("load platforms failed: %v", err)
	}

	upstream := collector.NewUpstream(cfg.UpstreamBaseURL, cfg.UpstreamUserAgent, cfg.UpstreamTimeout)
	sources := collector.BuildSources(defs, upstream, collector.SourceOptions{
		UserAgent: cfg.UpstreamUserAgent,
		Timeout:   cfg.UpstreamTimeout,
	})

	store := cache.Open[collector.PlatformTopics](cfg.RedisAddr, cfg.RedisPrefix)
	hub := hotlist.New(store, sources,
		hotlist.WithTTL(cfg.CacheTTL),
		hotlist.WithFetchTimeout(cfg.UpstreamTimeout),
	)

	// 进程内缓存需要定期回收过期条目，Redis 自己处理过期
	var sweeper scheduler.Sweeper
	if mem, ok := store.(*cache.Memory[collector.PlatformTopics]); ok {
		sweeper = mem
	}
	s, err := scheduler.New(cfg.CronSpec, hub, sweeper)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()
	defer s.Stop()

	r := gin.Default()
	apiServer := api.NewServer(hub, defs)
	apiServer.RegisterRoutes(r)

	// 若配置了前端目录，则托管 SPA 静态文件并做 fallback
	if cfg.WebRoot != "" {
		assetsDir := filepath.Join(cfg.WebRoot, "assets")
		indexFile := filepath.Join(cfg.WebRoot, "index.html")
		r.Static("/assets", assetsDir)
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet {
				c.Status(http.StatusNotFound)
				return
			}
			// SPA：未匹配 API 的 GET 均返回 index.html
			c.File(indexFile)
		})
	}

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s with %d platforms ...", addr, len(sources))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
