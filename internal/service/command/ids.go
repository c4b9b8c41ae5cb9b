package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/memobot/internal/core"
)

const fullIDLen = 36

// ResolveIDs expands short id prefixes against pending items. Full ids are
// passed through unchanged.
func ResolveIDs(ctx context.Context, mem MemoryService, args []string) ([]string, error) {
	var pending []core.MemoryItem
	loaded := false

	ids := make([]string, 0, len(args))
	for _, arg := range args {
		arg = strings.Trim(arg, "`,")
		if len(arg) == fullIDLen {
			ids = append(ids, arg)
			continue
		}
		if len(arg) < 4 {
			return nil, fmt.Errorf("%w: id demasiado corto: %q", core.ErrInvalidInput, arg)
		}
		if !loaded {
			var err error
			if pending, err = mem.List(ctx, core.ItemFilter{Status: core.StatusPending}); err != nil {
				return nil, err
			}
			loaded = true
		}

		var match []string
		for _, it := range pending {
			if strings.HasPrefix(it.ID, arg) {
				match = append(match, it.ID)
			}
		}
		switch len(match) {
		case 0:
			return nil, fmt.Errorf("no hay nada pendiente con id %q: %w", arg, core.ErrNotFound)
		case 1:
			ids = append(ids, match[0])
		default:
			return nil, fmt.Errorf("%w: el id %q es ambiguo", core.ErrInvalidInput, arg)
		}
	}
	return ids, nil
}
