package people

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/clock"
	"github.com/sandevgo/memobot/pkg/conv"
	"github.com/sandevgo/memobot/pkg/log"
)

// Resolver maps free-text person references to Person records.
type Resolver struct {
	repo  core.PersonRepository
	clock clock.Clock
}

func NewResolver(repo core.PersonRepository, clk clock.Clock) *Resolver {
	return &Resolver{repo: repo, clock: clk}
}

// Resolve returns the person named by name, creating it on first reference.
// A known person gets the raw spelling appended as alias when it is new.
func (r *Resolver) Resolve(ctx context.Context, name string) (core.Person, error) {
	name = strings.TrimSpace(name)
	normalized := conv.NormalizeName(name)
	if normalized == "" {
		return core.Person{}, fmt.Errorf("%w: empty person name", core.ErrInvalidInput)
	}

	p, err := r.repo.FindByName(ctx, normalized)
	switch {
	case err == nil:
		return r.rememberSpelling(ctx, p, name)
	case !errors.Is(err, core.ErrNotFound):
		return core.Person{}, fmt.Errorf("find person: %w", err)
	}

	p = core.Person{
		ID:          uuid.NewString(),
		DisplayName: conv.Capitalize(name),
		Aliases:     []string{name},
		CreatedAt:   r.clock.Now(),
	}
	if err := r.repo.Create(ctx, p, normalized); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			// Lost a race with a concurrent capture for the same name.
			return r.repo.FindByName(ctx, normalized)
		}
		return core.Person{}, fmt.Errorf("create person: %w", err)
	}

	log.FromCtx(ctx).Info().Str("person_id", p.ID).Str("name", p.DisplayName).Msg("person created")
	return p, nil
}

// Lookup is the read-only variant: it never creates a person.
func (r *Resolver) Lookup(ctx context.Context, name string) (core.Person, error) {
	normalized := conv.NormalizeName(name)
	if normalized == "" {
		return core.Person{}, fmt.Errorf("person %q: %w", name, core.ErrNotFound)
	}
	return r.repo.FindByName(ctx, normalized)
}

func (r *Resolver) Get(ctx context.Context, id string) (core.Person, error) {
	return r.repo.Get(ctx, id)
}

func (r *Resolver) List(ctx context.Context) ([]core.Person, error) {
	return r.repo.List(ctx)
}

func (r *Resolver) rememberSpelling(ctx context.Context, p core.Person, name string) (core.Person, error) {
	normalized := conv.NormalizeName(name)
	for _, a := range p.Aliases {
		if conv.NormalizeName(a) == normalized {
			return p, nil
		}
	}
	if err := r.repo.AddAlias(ctx, p.ID, name, normalized, r.clock.Now()); err != nil {
		// Alias bookkeeping never blocks the caller.
		log.FromCtx(ctx).Warn().Err(err).Str("person_id", p.ID).Msg("failed to add alias")
		return p, nil
	}
	p.Aliases = append(p.Aliases, name)
	return p, nil
}
