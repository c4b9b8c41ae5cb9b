package memory

import (
	"context"
	"errors"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/log"
)

// logGrace keeps the sweep from racing a capture that has created its item
// but not yet written the log entry.
const logGrace = time.Minute

type SweepReport struct {
	Embedded  int `json:"embedded"`
	Logged    int `json:"logged"`
	Linked    int `json:"linked"`
	Cancelled int `json:"cancelled"`
}

// Sweep repairs whatever a crash or an unavailable dependency left behind.
// Each step is independent; an error in one does not stop the others.
func (m *Memory) Sweep(ctx context.Context) (SweepReport, error) {
	var (
		report SweepReport
		errs   []error
		err    error
	)

	if report.Embedded, err = m.reembed(ctx); err != nil {
		errs = append(errs, err)
	}
	if report.Logged, err = m.backfillLog(ctx); err != nil {
		errs = append(errs, err)
	}
	if report.Linked, err = m.linker.LinkUnlinked(ctx, m.cfg.SweepBatch); err != nil {
		errs = append(errs, err)
	}
	if report.Cancelled, err = m.scheduler.CancelStale(ctx, m.cfg.SweepBatch); err != nil {
		errs = append(errs, err)
	}

	if report != (SweepReport{}) {
		log.FromCtx(ctx).Info().
			Int("embedded", report.Embedded).
			Int("logged", report.Logged).
			Int("linked", report.Linked).
			Int("cancelled", report.Cancelled).
			Msg("sweep complete")
	}
	return report, errors.Join(errs...)
}

// RunSweep adapts Sweep to the worker signature.
func (m *Memory) RunSweep(ctx context.Context) error {
	_, err := m.Sweep(ctx)
	return err
}

func (m *Memory) reembed(ctx context.Context) (int, error) {
	items, err := m.items.ListNeedingEmbedding(ctx, m.cfg.SweepBatch)
	if err != nil {
		return 0, err
	}

	var n int
	for _, it := range items {
		if it.Status == core.StatusArchived {
			if err := m.items.SetNeedsEmbedding(ctx, it.ID, false); err != nil {
				return n, err
			}
			continue
		}
		if err := m.indexItem(ctx, it, nil); err != nil {
			// Provider still down; try again next sweep.
			return n, err
		}
		n++
	}
	return n, nil
}

func (m *Memory) backfillLog(ctx context.Context) (int, error) {
	items, err := m.items.ListWithoutLog(ctx, m.clock.Now().Add(-logGrace), m.cfg.SweepBatch)
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		m.journal.Append(ctx, it.ID, core.ActionCreated, "", map[string]any{
			"kind":      string(it.Kind),
			"recovered": true,
		})
	}
	return len(items), nil
}

// RebuildIndex loads stored embeddings into the similarity index. Vectors
// from another embedding model are not comparable, so their items are
// flagged for re-embedding instead.
func (m *Memory) RebuildIndex(ctx context.Context) (int, error) {
	embs, err := m.items.ListEmbeddings(ctx)
	if err != nil {
		return 0, err
	}
	if len(embs) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(embs))
	seen := make(map[string]struct{}, len(embs))
	for _, e := range embs {
		if _, ok := seen[e.ItemID]; !ok {
			seen[e.ItemID] = struct{}{}
			ids = append(ids, e.ItemID)
		}
	}
	items, err := m.items.GetMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	byID := make(map[string]core.MemoryItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	model := m.embedder.Model()
	stale := make(map[string]struct{})
	var (
		n    int
		errs []error
	)
	for _, e := range embs {
		it, ok := byID[e.ItemID]
		if !ok || it.Status == core.StatusArchived {
			continue
		}
		if e.Model != model {
			stale[it.ID] = struct{}{}
			continue
		}
		if err := m.index.Upsert(ctx, core.IndexEntry{
			ItemID: it.ID, Source: e.Source, PersonID: it.PersonID, Kind: it.Kind, Status: it.Status, Vector: e.Vector,
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}

	for id := range stale {
		if err := m.items.SetNeedsEmbedding(ctx, id, true); err != nil {
			errs = append(errs, err)
		}
	}

	log.FromCtx(ctx).Info().Int("indexed", n).Int("stale", len(stale)).Msg("similarity index rebuilt")
	return n, errors.Join(errs...)
}
