package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gzhole/personaguard/internal/config"
	"github.com/gzhole/personaguard/internal/guard"
	"github.com/gzhole/personaguard/internal/logger"
	"github.com/gzhole/personaguard/internal/metrics"
	"github.com/gzhole/personaguard/internal/persona"
	"github.com/gzhole/personaguard/internal/store"
)

// runtime is everything a command needs to process exchanges.
type runtime struct {
	cfg     *config.Config
	persona *persona.Config
	guard   *guard.Guard
	store   store.Store
	audit   *logger.AuditLogger
}

type runtimeOptions struct {
	// restore loads prior learning from the snapshot store.
	restore bool
	// persist writes learning back to the snapshot store.
	persist bool
	// audit appends one line per exchange to the audit log.
	audit bool
}

func openRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := config.Load(personaPath, statePath, logPath, storeBackend)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pcfg, err := loadPersona(cfg)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, persona: pcfg}
	guardOpts := []guard.Option{
		guard.WithLogger(zlog.Named("guard")),
		guard.WithMetrics(metrics.New(prometheus.NewRegistry())),
	}

	if opts.restore || opts.persist {
		st, err := cfg.OpenStore(ctx)
		if err != nil {
			zlog.Warn("snapshot store unavailable, learning will not be kept",
				zap.String("backend", string(cfg.Backend)),
				zap.Error(err),
			)
		} else {
			rt.store = st
			if opts.persist {
				p := store.NewPersister(st, store.WithPersisterLogger(zlog.Named("persister")))
				guardOpts = append(guardOpts, guard.WithPersister(p))
			}
		}
	}

	if opts.audit {
		a, err := logger.New(cfg.LogPath)
		if err != nil {
			zlog.Warn("audit log unavailable", zap.String("path", cfg.LogPath), zap.Error(err))
		} else {
			rt.audit = a
			guardOpts = append(guardOpts, guard.WithAuditLog(a))
		}
	}

	rt.guard = guard.New(pcfg, guardOpts...)

	if opts.restore && rt.store != nil {
		if err := rt.guard.Restore(ctx, rt.store); err != nil {
			zlog.Warn("starting without prior learning", zap.Error(err))
		}
	}
	return rt, nil
}

func (rt *runtime) Close() error {
	var errs []error
	if err := rt.guard.Close(); err != nil {
		errs = append(errs, fmt.Errorf("save learning: %w", err))
	}
	if rt.audit != nil {
		errs = append(errs, rt.audit.Close())
	}
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	return errors.Join(errs...)
}

// loadPersona reads the persona file, or the built-in persona when it is
// missing, and merges enabled packs on top.
func loadPersona(cfg *config.Config) (*persona.Config, error) {
	base, err := persona.Load(cfg.PersonaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona: %w", err)
	}

	merged, infos, err := persona.LoadPacks(cfg.PacksDir, base)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona packs: %w", err)
	}
	for _, info := range infos {
		if info.Err != nil {
			zlog.Warn("persona pack skipped", zap.String("pack", info.Name), zap.Error(info.Err))
		}
	}
	return merged, nil
}
