package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/season"
	"github.com/harrisonrobin/taskquest/pkg/settings"
	"github.com/harrisonrobin/taskquest/pkg/store"
	"github.com/harrisonrobin/taskquest/pkg/tracker"
)

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, settings.ErrInvalid), errors.Is(err, season.ErrInvalid):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Tasks

func (s *Server) handleListTasks(c *gin.Context) {
	f := store.TaskFilter{Owner: c.Query("owner"), Status: model.Status(c.Query("status"))}
	if f.Status != "" && !f.Status.Valid() {
		badRequest(c, fmt.Errorf("unknown status %q", f.Status))
		return
	}
	tasks, err := s.Tracker.Tasks(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.Store.Task(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type saveResponse struct {
	tracker.Result
	LedgerError string `json:"ledger_error,omitempty"`
}

func (s *Server) handleSaveTasks(c *gin.Context) {
	var tasks []model.Task
	if err := c.ShouldBindJSON(&tasks); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.Tracker.SaveTasks(c.Request.Context(), tasks)
	switch {
	case errors.Is(err, tracker.ErrLedger):
		s.Logger.Warn("tasks saved, ledger update failed", zap.Error(err))
		c.JSON(http.StatusOK, saveResponse{Result: res, LedgerError: err.Error()})
	case err != nil:
		s.fail(c, err)
	default:
		c.JSON(http.StatusOK, saveResponse{Result: res})
	}
}

// Players

func (s *Server) handleListPlayers(c *gin.Context) {
	players, err := s.Store.Players(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, players)
}

func (s *Server) handleUpsertPlayer(c *gin.Context) {
	var p model.Player
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		badRequest(c, errors.New("player id required"))
		return
	}
	if err := s.Store.UpsertPlayer(c.Request.Context(), p); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleHistory(c *gin.Context) {
	id := c.Param("id")
	entries := s.Ledger.History(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{
		"player_id": id,
		"total":     model.TotalXP(entries),
		"entries":   entries,
	})
}

type grantRequest struct {
	XP          int    `json:"xp"`
	Description string `json:"description"`
}

func (s *Server) handleGrant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e := model.XPEntry{
		PlayerID:    c.Param("id"),
		XP:          req.XP,
		Source:      model.SourceManual,
		Description: req.Description,
	}
	if err := s.Ledger.Append(c.Request.Context(), &e); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *Server) handleCheckIn(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	entry, err := s.Streak.CheckIn(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	paid := []model.XPEntry{}
	if entry != nil && s.Missions != nil {
		if paid, err = s.Missions.Check(ctx, id); err != nil {
			s.fail(c, err)
			return
		}
	}
	days, err := s.Streak.Current(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry, "streak": days, "missions": paid})
}

func (s *Server) handleMissions(c *gin.Context) {
	progress, err := s.Missions.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Analytics

func (s *Server) handleSummary(c *gin.Context) {
	sum, err := s.Analytics.Summary(c.Request.Context(), c.Query("owner"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	cur, standings, err := s.Analytics.Leaderboard(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"season": cur, "standings": standings})
}

// Settings

func (s *Server) handleGetProductivity(c *gin.Context) {
	c.JSON(http.StatusOK, s.Settings.Productivity(c.Request.Context()))
}

func (s *Server) handlePutProductivity(c *gin.Context) {
	var p settings.Productivity
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Settings.SaveProductivity(c.Request.Context(), p); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleGetStreak(c *gin.Context) {
	c.JSON(http.StatusOK, s.Settings.Streak(c.Request.Context()))
}

func (s *Server) handlePutStreak(c *gin.Context) {
	var st settings.Streak
	if err := c.ShouldBindJSON(&st); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Settings.SaveStreak(c.Request.Context(), st); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleGetSeason(c *gin.Context) {
	c.JSON(http.StatusOK, s.Settings.Season(c.Request.Context()))
}

func (s *Server) handlePutSeason(c *gin.Context) {
	var cfg season.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Settings.SaveSeason(c.Request.Context(), cfg); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleGetMissions(c *gin.Context) {
	list := s.Settings.Missions(c.Request.Context())
	if list == nil {
		list = []settings.Mission{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handlePutMissions(c *gin.Context) {
	var list []settings.Mission
	if err := c.ShouldBindJSON(&list); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Settings.SaveMissions(c.Request.Context(), list); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
