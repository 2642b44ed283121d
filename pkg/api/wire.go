package api

import (
	"context"

	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/analytics"
	"github.com/harrisonrobin/taskquest/pkg/ledger"
	"github.com/harrisonrobin/taskquest/pkg/mission"
	"github.com/harrisonrobin/taskquest/pkg/settings"
	"github.com/harrisonrobin/taskquest/pkg/store"
	"github.com/harrisonrobin/taskquest/pkg/streak"
	"github.com/harrisonrobin/taskquest/pkg/tracker"
)

// Wire builds the service graph over st. The ledger prices completions with
// the stored productivity settings; opts are applied after that.
func Wire(st store.Store, logger *zap.Logger, opts ...ledger.Option) Deps {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := settings.NewService(st, logger)

	ledgerOpts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithPolicySource(func(ctx context.Context) ledger.Policy {
			return ledger.PolicyFrom(cfg.Productivity(ctx))
		}),
	}
	l := ledger.New(st, append(ledgerOpts, opts...)...)

	missions := mission.NewTracker(st, cfg, l, logger)
	return Deps{
		Store:     st,
		Tracker:   tracker.New(st, l, missions, logger),
		Ledger:    l,
		Settings:  cfg,
		Streak:    streak.NewAwarder(l, st, cfg, logger),
		Missions:  missions,
		Analytics: analytics.NewService(st, cfg),
		Logger:    logger,
	}
}
