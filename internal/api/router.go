package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/LJTian/PulseHub/internal/collector"
	"github.com/LJTian/PulseHub/internal/hotlist"
	"github.com/gin-gonic/gin"
)

type Server struct {
	hub       *hotlist.Service
	platforms []collector.PlatformDef
}

func NewServer(hub *hotlist.Service, platforms []collector.PlatformDef) *Server {
	return &Server{hub: hub, platforms: platforms}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.Use(requestID())
	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/platforms", s.listPlatforms)
		api.GET("/hot", s.listAll)
		api.GET("/aggregated", s.aggregated)
		api.GET("/:platform", s.platformTopics)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

// listPlatforms 返回看板卡片的元数据，最后附加聚合卡片
func (s *Server) listPlatforms(c *gin.Context) {
	out := make([]collector.PlatformDef, 0, len(s.platforms)+1)
	out = append(out, s.platforms...)
	out = append(out, collector.PlatformDef{
		ID:    collector.AggregatedPlatform,
		Name:  "Aggregated Hot Topics",
		Icon:  "🔥",
		Color: "#ff6b35",
	})
	c.JSON(http.StatusOK, out)
}

// listAll 看板一次性刷新：平台 id -> 热榜，失败的平台不出现，有聚合结果时附带 aggregated
func (s *Server) listAll(c *gin.Context) {
	snap := s.hub.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, snap.Cards())
}

func (s *Server) aggregated(c *gin.Context) {
	agg, ok := s.hub.Aggregated(c.Request.Context())
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (s *Server) platformTopics(c *gin.Context) {
	platform := c.Param("platform")
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	var (
		data collector.PlatformTopics
		err  error
	)
	if refresh {
		data, err = s.hub.Reload(c.Request.Context(), platform)
	} else {
		data, err = s.hub.Get(c.Request.Context(), platform)
	}

	if err != nil {
		if errors.Is(err, hotlist.ErrUnknownPlatform) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Unknown platform",
				"message": err.Error(),
			})
			return
		}
		log.Printf("[%s] %s API error: %v", c.GetString(requestIDKey), platform, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to fetch " + platform + " hot topics",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, data)
}
