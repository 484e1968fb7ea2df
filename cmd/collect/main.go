package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/LJTian/PulseHub/internal/cache"
	"github.com/LJTian/PulseHub/internal/collector"
	"github.com/LJTian/PulseHub/internal/config"
	"github.com/LJTian/PulseHub/internal/hotlist"
	"github.com/spf13/cobra"
)

var (
	flagPlatforms []string
	flagPretty    bool
	flagTimeout   time.Duration
)

// 一个仅执行一轮刷新的命令行入口：适合手动检查上游是否可用
var rootCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one hot topic refresh cycle and print the result as JSON",
	RunE:  runCollect,
}

func init() {
	rootCmd.Flags().StringSliceVarP(&flagPlatforms, "platform", "p", nil, "only refresh these platform ids (repeatable)")
	rootCmd.Flags().BoolVar(&flagPretty, "pretty", false, "indent JSON output")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 2*time.Minute, "overall deadline for the refresh cycle")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type output struct {
	Platforms map[string]collector.PlatformTopics `json:"platforms"`
	Errors    map[string]string                   `json:"errors,omitempty"`
}

func runCollect(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()

	defs, err := collector.LoadPlatforms(cfg.PlatformsFile)
	if err != nil {
		return err
	}
	if len(flagPlatforms) > 0 {
		defs = slices.DeleteFunc(defs, func(d collector.PlatformDef) bool {
			return !slices.Contains(flagPlatforms, d.ID)
		})
		if len(defs) == 0 {
			return fmt.Errorf("no platform matches %v", flagPlatforms)
		}
	}

	upstream := collector.NewUpstream(cfg.UpstreamBaseURL, cfg.UpstreamUserAgent, cfg.UpstreamTimeout)
	sources := collector.BuildSources(defs, upstream, collector.SourceOptions{
		UserAgent: cfg.UpstreamUserAgent,
		Timeout:   cfg.UpstreamTimeout,
	})
	hub := hotlist.New(cache.Open[collector.PlatformTopics](cfg.RedisAddr, cfg.RedisPrefix), sources,
		hotlist.WithTTL(cfg.CacheTTL),
		hotlist.WithFetchTimeout(cfg.UpstreamTimeout),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()
	snap := hub.Refresh(ctx)

	enc := json.NewEncoder(cmd.OutOrStdout())
	if flagPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(output{Platforms: snap.Cards(), Errors: snap.ErrorMessages()}); err != nil {
		return err
	}

	if len(snap.Platforms) == 0 {
		return fmt.Errorf("all %d platforms failed", len(snap.Errors))
	}
	return nil
}
