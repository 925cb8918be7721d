// Package params resolves the effective tuning parameters for one
// retrieval request by merging system defaults with per-user overrides.
package params

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mnemo-ai/mnemo/cache"
	"github.com/mnemo-ai/mnemo/model"
)

// OverrideGetter reads the raw per-user override document. cache.ErrNoOverride
// means the user has no overrides stored.
type OverrideGetter interface {
	Get(ctx context.Context, userID string) (string, error)
}

// Loader resolves effective UserParameters per request.
type Loader struct {
	defaults  *DefaultsCache
	overrides OverrideGetter
	log       *slog.Logger
}

// NewLoader creates a loader. overrides may be nil, in which case every
// user gets the system defaults.
func NewLoader(defaults *DefaultsCache, overrides OverrideGetter, logger *slog.Logger) *Loader {
	return &Loader{defaults: defaults, overrides: overrides, log: logger}
}

// Load returns the effective parameters for userID. Every failure path
// (cache unreachable, malformed document, validation violation) falls back
// to the system defaults and logs; loading never fails the caller.
func (l *Loader) Load(ctx context.Context, userID string) model.UserParameters {
	defaults := l.defaults.Get()

	if l.overrides == nil {
		return defaults
	}

	document, err := l.overrides.Get(ctx, userID)
	if errors.Is(err, cache.ErrNoOverride) {
		return defaults
	}
	if err != nil {
		l.log.Warn("Override cache lookup failed, using defaults",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return defaults
	}

	var overrides model.UserParameterOverrides
	if err := json.Unmarshal([]byte(document), &overrides); err != nil {
		l.log.Warn("Malformed override document, using defaults",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return defaults
	}

	merged := model.MergeUserParameters(defaults, &overrides)
	if err := merged.Validate(); err != nil {
		l.log.Warn("Merged parameters failed validation, using defaults",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return defaults
	}

	return merged
}
