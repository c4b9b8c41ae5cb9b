package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/memobot/internal/config"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/service/calendar"
	"github.com/sandevgo/memobot/pkg/clock"
	"github.com/sandevgo/memobot/pkg/conv"
	"github.com/sandevgo/memobot/pkg/log"
)

type PersonResolver interface {
	Resolve(ctx context.Context, name string) (core.Person, error)
	Get(ctx context.Context, id string) (core.Person, error)
}

type Linker interface {
	LinkIfNeeded(ctx context.Context, item core.MemoryItem) (calendar.LinkResult, error)
	LinkUnlinked(ctx context.Context, limit int) (int, error)
}

type Scheduler interface {
	Schedule(ctx context.Context, itemIDs []string, eventID, personID string, at time.Time) (core.Trigger, error)
	CancelIfClosed(ctx context.Context, itemIDs []string) (int, error)
	CancelStale(ctx context.Context, limit int) (int, error)
	Postpone(ctx context.Context, item core.MemoryItem, until time.Time) (core.Trigger, error)
}

type Deps struct {
	Items     core.ItemRepository
	Events    core.EventRepository
	People    PersonResolver
	Embedder  core.Embedder
	Index     core.SimilarityIndex
	Journal   core.Journal
	Linker    Linker
	Scheduler Scheduler
	Clock     clock.Clock
}

// Memory owns every mutation of memory items: consolidation on capture,
// closing, archiving and postponing.
type Memory struct {
	cfg       *config.EngineConfig
	items     core.ItemRepository
	events    core.EventRepository
	people    PersonResolver
	embedder  core.Embedder
	index     core.SimilarityIndex
	journal   core.Journal
	linker    Linker
	scheduler Scheduler
	clock     clock.Clock
}

func NewMemory(cfg *config.EngineConfig, d Deps) *Memory {
	return &Memory{
		cfg:       cfg,
		items:     d.Items,
		events:    d.Events,
		people:    d.People,
		embedder:  d.Embedder,
		index:     d.Index,
		journal:   d.Journal,
		linker:    d.Linker,
		scheduler: d.Scheduler,
		clock:     d.Clock,
	}
}

// Capture consolidates one parsed request: exact duplicate, merge into a
// similar pending item, suppression by a discussed one, or a new item.
// Embedding or index failures never lose the capture; the item is created
// and flagged for the sweep.
func (m *Memory) Capture(ctx context.Context, req core.CaptureRequest) (Outcome, error) {
	req, err := m.validate(req)
	if err != nil {
		return nil, err
	}
	logger := log.FromCtx(ctx)

	var personID string
	if req.PersonName != "" {
		p, err := m.people.Resolve(ctx, req.PersonName)
		if err != nil {
			return nil, fmt.Errorf("resolve person: %w", err)
		}
		personID = p.ID
	}

	fp := conv.Fingerprint(req.Content)
	existing, err := m.items.FindPendingByFingerprint(ctx, personID, fp)
	switch {
	case err == nil:
		logger.Debug().Str("item_id", existing.ID).Msg("exact duplicate capture")
		return Duplicate{MemoryItem: existing}, nil
	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}

	vec, searchErr := m.embed(ctx, req.Content)
	var cands []candidate
	if searchErr == nil {
		cands, searchErr = m.similar(ctx, vec, personID, req.Kind)
	}
	if searchErr != nil {
		logger.Warn().Err(searchErr).Msg("similarity path unavailable, falling back to fingerprint only")
	}

	d, best := decide(cands, m.cfg.MergeThreshold, m.cfg.DiscussedThreshold)
	logger.Debug().Stringer("decision", d).Float32("score", best.score).Int("candidates", len(cands)).Msg("consolidation decision")

	switch d {
	case decideMerge:
		out, merged, err := m.merge(ctx, best.item, req, best.score)
		if err != nil {
			return nil, err
		}
		if merged {
			return out, nil
		}
		// The target left pending while we raced it; record a new item instead.
	case decideDiscussed:
		return AlreadyDiscussed{MemoryItem: best.item, Score: best.score}, nil
	}

	return m.create(ctx, req, personID, fp, vec)
}

// CaptureAll captures requests in order. It stops at the first error and
// returns the outcomes gathered so far.
func (m *Memory) CaptureAll(ctx context.Context, reqs []core.CaptureRequest) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(reqs))
	for _, req := range reqs {
		o, err := m.Capture(ctx, req)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

func (m *Memory) validate(req core.CaptureRequest) (core.CaptureRequest, error) {
	req.Content = strings.TrimSpace(req.Content)
	req.Summary = strings.TrimSpace(req.Summary)
	req.PersonName = strings.TrimSpace(req.PersonName)

	if req.Content == "" {
		return req, fmt.Errorf("%w: content is empty", core.ErrInvalidInput)
	}
	if req.Kind == "" {
		req.Kind = core.KindReminder
	}
	if !req.Kind.Valid() {
		return req, fmt.Errorf("%w: unknown kind %q", core.ErrInvalidInput, req.Kind)
	}
	if req.Confidence < m.cfg.ConfidenceFloor {
		return req, fmt.Errorf("%w (%.2f < %.2f)", core.ErrLowConfidence, req.Confidence, m.cfg.ConfidenceFloor)
	}
	if req.DueAt != nil {
		due := req.DueAt.UTC()
		req.DueAt = &due
	}
	return req, nil
}

func (m *Memory) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.EmbedTimeout)
	defer cancel()
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, core.Unavailable("embedder", err)
	}
	return vec, nil
}

// similar returns the stored items nearest to vec, with their scores.
func (m *Memory) similar(ctx context.Context, vec []float32, personID string, kind core.ItemKind) ([]candidate, error) {
	// Pending and discussed items are searched apart so neither crowds the
	// other out of the top K.
	sctx, cancel := context.WithTimeout(ctx, m.cfg.SearchTimeout)
	defer cancel()
	var matches []core.Match
	for _, status := range []core.ItemStatus{core.StatusPending, core.StatusDiscussed} {
		found, err := m.index.Search(sctx, core.SearchQuery{
			Vector: vec, PersonID: personID, Kind: kind, Status: status, TopK: m.cfg.TopK,
		})
		if err != nil {
			return nil, core.Unavailable("similarity index", err)
		}
		matches = append(matches, found...)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, mt := range matches {
		ids[i] = mt.ItemID
	}
	items, err := m.items.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]core.MemoryItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	cands := make([]candidate, 0, len(matches))
	for _, mt := range matches {
		it, ok := byID[mt.ItemID]
		if !ok {
			log.FromCtx(ctx).Warn().Err(core.ErrInconsistent).Str("item_id", mt.ItemID).Msg("index entry without stored item")
			continue
		}
		cands = append(cands, candidate{item: it, score: mt.Score})
	}
	return cands, nil
}

func (m *Memory) create(ctx context.Context, req core.CaptureRequest, personID, fp string, vec []float32) (Outcome, error) {
	now := m.clock.Now()
	item := core.MemoryItem{
		ID:             uuid.NewString(),
		Kind:           req.Kind,
		Content:        req.Content,
		Summary:        req.Summary,
		PersonID:       personID,
		DueAt:          req.DueAt,
		Status:         core.StatusPending,
		Fingerprint:    fp,
		NeedsEmbedding: true,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := m.items.Create(ctx, item); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			existing, ferr := m.items.FindPendingByFingerprint(ctx, personID, fp)
			if ferr == nil {
				return Duplicate{MemoryItem: existing}, nil
			}
		}
		return nil, fmt.Errorf("create memory item: %w", err)
	}

	meta := map[string]any{"kind": string(item.Kind)}
	if vec == nil {
		meta["degraded"] = true
	}
	m.journal.Append(ctx, item.ID, core.ActionCreated, "", meta)

	out := Created{MemoryItem: item, Degraded: vec == nil}
	if vec != nil {
		if err := m.indexItem(ctx, item, vec); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("item_id", item.ID).Msg("item stored, indexing deferred to sweep")
			out.Degraded = true
		} else {
			out.MemoryItem.NeedsEmbedding = false
		}
	}

	out.Link = m.plan(ctx, item)
	log.FromCtx(ctx).Info().
		Str("item_id", item.ID).
		Str("person_id", personID).
		Bool("linked", out.Link.Linked).
		Bool("degraded", out.Degraded).
		Msg("memory item created")
	return out, nil
}

// merge enriches target with req under the optimistic version check. It
// reports merged=false when target is no longer pending.
func (m *Memory) merge(ctx context.Context, target core.MemoryItem, req core.CaptureRequest, score float32) (Outcome, bool, error) {
	hadDue := target.DueAt != nil

	for attempt := 0; attempt <= m.cfg.ConflictRetries; attempt++ {
		if target.Status != core.StatusPending {
			return nil, false, nil
		}

		summary := target.Summary
		if req.Summary != "" {
			summary = req.Summary
		}
		updated, err := m.items.UpdateContent(ctx, core.ContentUpdate{
			ID:              target.ID,
			ExpectedVersion: target.Version,
			Content:         enrich(target.Content, req.Content),
			Summary:         summary,
			DueAt:           req.DueAt,
			NeedsEmbedding:  true,
			UpdatedAt:       m.clock.Now(),
		})
		if err == nil {
			return m.afterMerge(ctx, updated, req, score, hadDue), true, nil
		}
		if !errors.Is(err, core.ErrConflictingUpdate) {
			return nil, false, err
		}

		log.FromCtx(ctx).Debug().Str("item_id", target.ID).Int("attempt", attempt+1).Msg("merge conflict, reloading")
		if target, err = m.items.Get(ctx, target.ID); err != nil {
			return nil, false, err
		}
		hadDue = target.DueAt != nil
	}
	return nil, false, fmt.Errorf("merge into %s: %w", target.ID, core.ErrConflictingUpdate)
}

func (m *Memory) afterMerge(ctx context.Context, item core.MemoryItem, req core.CaptureRequest, score float32, hadDue bool) Merged {
	m.journal.Append(ctx, item.ID, core.ActionMerged, "", map[string]any{
		"incoming_text": req.Content,
		"score":         score,
		"merged_into":   item.ID,
	})

	if err := m.indexItem(ctx, item, nil); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("item_id", item.ID).Msg("merged item re-embedding deferred to sweep")
	} else {
		item.NeedsEmbedding = false
	}

	out := Merged{MemoryItem: item, MergedFrom: req.Content, Score: score}
	if item.DueAt == nil || !hadDue {
		out.Link = m.plan(ctx, item)
	}
	log.FromCtx(ctx).Info().Str("item_id", item.ID).Float32("score", score).Msg("capture merged into existing item")
	return out
}

// enrich appends incoming to content unless it adds nothing new.
func enrich(content, incoming string) string {
	have := conv.Normalize(content)
	add := conv.Normalize(incoming)
	if add == "" || strings.Contains(have, add) {
		return content
	}
	return content + "\n" + incoming
}

// plan attaches a reminder: at the explicit due time, or before the next
// meeting with the item's person. Failures are logged; the sweep retries
// linking.
func (m *Memory) plan(ctx context.Context, item core.MemoryItem) calendar.LinkResult {
	if item.DueAt != nil {
		t, err := m.scheduler.Schedule(ctx, []string{item.ID}, "", item.PersonID, *item.DueAt)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("item_id", item.ID).Msg("failed to schedule due reminder")
			return calendar.LinkResult{}
		}
		return calendar.LinkResult{Linked: true, TriggerAt: t.TriggerAt, TriggerID: t.ID}
	}

	res, err := m.linker.LinkIfNeeded(ctx, item)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("item_id", item.ID).Msg("calendar linking failed")
		return calendar.LinkResult{}
	}
	return res
}

// indexItem stores the item's vectors and clears its needs_embedding flag.
// contentVec may be nil, in which case it is computed.
func (m *Memory) indexItem(ctx context.Context, item core.MemoryItem, contentVec []float32) error {
	var err error
	if contentVec == nil {
		if contentVec, err = m.embed(ctx, item.Content); err != nil {
			return err
		}
	}

	sources := map[string][]float32{core.EmbeddingSourceContent: contentVec}
	if item.Summary != "" {
		if vec, err := m.embed(ctx, item.Summary); err == nil {
			sources[core.EmbeddingSourceSummary] = vec
		}
	}

	now := m.clock.Now()
	for source, vec := range sources {
		if err := m.items.SaveEmbedding(ctx, core.MemoryItemEmbedding{
			ItemID: item.ID, Source: source, Model: m.embedder.Model(), Vector: vec, CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := m.index.Upsert(ctx, core.IndexEntry{
			ItemID: item.ID, Source: source, PersonID: item.PersonID, Kind: item.Kind, Status: item.Status, Vector: vec,
		}); err != nil {
			return err
		}
	}
	return m.items.SetNeedsEmbedding(ctx, item.ID, false)
}
