package contracts

import (
	"context"

	"opsdeck/internal/core/domain"
)

// Drafter produces AI-assisted text from an already-guarded prompt.
type Drafter interface {
	Draft(ctx context.Context, system, prompt string) (string, error)
	// Available reports whether a real model backend is configured.
	Available() bool
}

// NopDrafter is wired when no model backend is configured; callers get a
// typed error instead of a runtime existence check.
type NopDrafter struct{}

func (NopDrafter) Draft(context.Context, string, string) (string, error) {
	return "", domain.ErrDraftingUnavailable
}

func (NopDrafter) Available() bool { return false }
