// Package api serves the dashboard, analytics and editor data as JSON over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/analytics"
	"github.com/harrisonrobin/taskquest/pkg/ledger"
	"github.com/harrisonrobin/taskquest/pkg/mission"
	"github.com/harrisonrobin/taskquest/pkg/settings"
	"github.com/harrisonrobin/taskquest/pkg/store"
	"github.com/harrisonrobin/taskquest/pkg/streak"
	"github.com/harrisonrobin/taskquest/pkg/tracker"
)

// Deps are the services the handlers call into.
type Deps struct {
	Store     store.Store
	Tracker   *tracker.Service
	Ledger    *ledger.Ledger
	Settings  *settings.Service
	Streak    *streak.Awarder
	Missions  *mission.Tracker
	Analytics *analytics.Service
	Logger    *zap.Logger
}

type Server struct {
	Deps
	router *gin.Engine
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	d.Logger = d.Logger.Named("api")

	router := gin.New()
	s := &Server{Deps: d, router: router}
	router.Use(s.logRequests(), gin.Recovery())

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PUT("/tasks", s.handleSaveTasks)

		api.GET("/players", s.handleListPlayers)
		api.PUT("/players", s.handleUpsertPlayer)
		api.GET("/players/:id/xp", s.handleHistory)
		api.POST("/players/:id/xp", s.handleGrant)
		api.POST("/players/:id/checkin", s.handleCheckIn)
		api.GET("/players/:id/missions", s.handleMissions)

		api.GET("/summary", s.handleSummary)
		api.GET("/leaderboard", s.handleLeaderboard)

		api.GET("/settings/productivity", s.handleGetProductivity)
		api.PUT("/settings/productivity", s.handlePutProductivity)
		api.GET("/settings/streak", s.handleGetStreak)
		api.PUT("/settings/streak", s.handlePutStreak)
		api.GET("/settings/season", s.handleGetSeason)
		api.PUT("/settings/season", s.handlePutSeason)
		api.GET("/settings/missions", s.handleGetMissions)
		api.PUT("/settings/missions", s.handlePutMissions)
	}

	return s
}

// Handler exposes the router for an http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
