package fx

import (
	"go.uber.org/fx"

	"planner-sync/internal/api"
	"planner-sync/internal/ascension"
	"planner-sync/internal/config"
	"planner-sync/internal/cover"
	"planner-sync/internal/database"
	"planner-sync/internal/goal"
	"planner-sync/internal/inventory"
	"planner-sync/internal/logger"
	"planner-sync/internal/planner"
	"planner-sync/internal/refdata"
	"planner-sync/internal/server"
	"planner-sync/internal/service"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// planner state adapter
	fx.Provide(planner.NewStore),
	// upstream collaborators
	fx.Provide(api.NewClient),
	fx.Provide(refdata.NewLoader),
	// core engine
	fx.Provide(ascension.NewSolver),
	fx.Provide(goal.NewMerger),
	fx.Provide(cover.NewSolver),
	fx.Provide(inventory.NewReconciler),
	fx.Provide(func(c *api.Client) service.GameAPI { return c }),
	fx.Provide(func(s *planner.Store) service.PlannerStore { return s }),
	fx.Provide(func(l *refdata.Loader) service.ReferenceSource { return l }),
	fx.Provide(service.NewSyncService),
	// http surface
	fx.Provide(server.NewSyncServer),
)
