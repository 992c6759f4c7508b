package controllers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/amaykorade/zakapay-hackathon/api/responses"
	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

const (
	envHeader        = "X-SplitPay-Env"
	readinessTimeout = 2 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is a named readiness check.
type Dependency struct {
	Name   string
	Pinger pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently under one deadline. The
// error names the first failing dependency in registration order and lists
// all of them.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := make([]error, len(deps))
		var g errgroup.Group
		for i, dep := range deps {
			if dep.Pinger == nil {
				continue
			}
			g.Go(func() error {
				results[i] = dep.Pinger.Ping(ctx)
				return nil
			})
		}
		_ = g.Wait()

		var failed []string
		var combined error
		for i, err := range results {
			if err != nil {
				failed = append(failed, deps[i].Name)
				combined = multierr.Append(combined, err)
			}
		}
		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, combined, failed[0]+" unavailable").
				WithDetails(map[string]any{"dependency": failed[0], "failed": failed}))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
