package collector

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed platforms.yaml
var defaultPlatforms []byte

// PlatformDef 平台注册信息：展示元数据 + 数据来源
type PlatformDef struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Icon   string `yaml:"icon" json:"icon"`
	Color  string `yaml:"color" json:"color"`
	Search string `yaml:"search" json:"-"`

	Endpoint string       `yaml:"endpoint" json:"-"`
	Scrape   *ScrapeRule  `yaml:"scrape" json:"-"`
	Feed     string       `yaml:"feed" json:"-"`
	Static   []StaticItem `yaml:"static" json:"-"`
}

type registryFile struct {
	Platforms []PlatformDef `yaml:"platforms"`
}

// LoadPlatforms 读取平台注册表，path 为空时使用内置的 platforms.yaml
func LoadPlatforms(path string) ([]PlatformDef, error) {
	data := defaultPlatforms
	if path != "" {
		bs, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read platforms file: %w", err)
		}
		data = bs
	}
	return parsePlatforms(data)
}

func parsePlatforms(data []byte) ([]PlatformDef, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse platforms: %w", err)
	}
	if len(f.Platforms) == 0 {
		return nil, fmt.Errorf("parse platforms: no platform defined")
	}

	seen := make(map[string]struct{}, len(f.Platforms))
	for i := range f.Platforms {
		p := &f.Platforms[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("platform #%d: missing id", i+1)
		}
		if p.ID == AggregatedPlatform {
			return nil, fmt.Errorf("platform %q: id is reserved", p.ID)
		}
		if _, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("platform %q: duplicated id", p.ID)
		}
		seen[p.ID] = struct{}{}
		if !strings.Contains(p.Search, "{query}") {
			return nil, fmt.Errorf("platform %q: search template must contain {query}", p.ID)
		}
		if p.Endpoint == "" && p.Scrape == nil && p.Feed == "" && len(p.Static) == 0 {
			return nil, fmt.Errorf("platform %q: no topic source configured", p.ID)
		}
	}
	return f.Platforms, nil
}

// SourceOptions 构建数据源时共享的上游参数
type SourceOptions struct {
	UserAgent string
	Timeout   time.Duration
}

// BuildSources 为每个平台构建一个 TopicSource，多种来源按 endpoint -> scrape -> feed -> static 串成兜底链
func BuildSources(defs []PlatformDef, u *Upstream, opts SourceOptions) []TopicSource {
	sources := make([]TopicSource, 0, len(defs))
	for _, d := range defs {
		var chain []TopicSource
		if d.Endpoint != "" && u != nil {
			chain = append(chain, NewLiveSource(u, d.ID, d.Endpoint, d.Search))
		}
		if d.Scrape != nil {
			chain = append(chain, NewScrapeSource(d.ID, d.Search, opts.UserAgent, *d.Scrape))
		}
		if d.Feed != "" {
			chain = append(chain, NewFeedSource(d.ID, d.Feed, d.Search, opts.UserAgent, opts.Timeout))
		}
		if len(d.Static) > 0 {
			chain = append(chain, NewStaticSource(d.ID, d.Search, d.Static))
		}
		if len(chain) == 0 {
			continue
		}

		src := chain[len(chain)-1]
		for i := len(chain) - 2; i >= 0; i-- {
			src = NewFallbackSource(chain[i], src).WithBudget(opts.Timeout)
		}
		sources = append(sources, src)
	}
	return sources
}
