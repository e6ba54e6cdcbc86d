package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"

	"fortnight/internal/app"
	"fortnight/internal/autopilot"
	"fortnight/internal/config"
	"fortnight/internal/domain"
	"fortnight/internal/store"
)

// InitModule wires the game components and registers the RPC surface.
// The game keeps its own SQLite database next to the runtime; the
// injected Nakama db handle is not used for game state.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	if path, ok := env[EnvConfigPath]; ok && path != "" {
		if err := config.LoadGameConfig(path); err != nil {
			logger.Warn("Game config not loaded, using defaults: %v", err)
		}
	}

	dbPath := config.GetDatabasePath()
	if path, ok := env[EnvDatabasePath]; ok && path != "" {
		dbPath = path
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}

	notifier := NewNakamaNotifier(nk, st, logger)
	turns := app.NewCoordinator(st, notifier, logger)
	exec := app.NewExecutor(st, turns, notifier, logger, nil)
	broker := app.NewBroker(st, notifier, logger, config.GetInteractionWait())

	if err := turns.RebuildLocks(ctx); err != nil {
		return err
	}

	svc := &service{store: st, turns: turns, exec: exec, broker: broker}
	if err := svc.RegisterRPCs(initializer); err != nil {
		return err
	}

	retries, retryBase := config.GetDriverRetry()
	driver := autopilot.NewDriver(st, turns, exec, logger, config.GetDriverInterval(), retries, retryBase, nil)
	if overrides := config.GetCellWeights(); len(overrides) > 0 {
		tuning := autopilot.DefaultTuning
		base := make(map[domain.Cell]float64, len(tuning.CellBase))
		for cell, w := range tuning.CellBase {
			base[cell] = w
		}
		for cell, w := range overrides {
			if domain.Cell(cell).Valid() {
				base[domain.Cell(cell)] = w
			}
		}
		tuning.CellBase = base
		driver.Tune(tuning)
	}
	go driver.Run(ctx)

	logger.Info("Fortnight game module loaded (db: %s).", dbPath)
	return nil
}
