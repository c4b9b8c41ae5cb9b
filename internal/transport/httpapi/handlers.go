package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/service/command"
	"github.com/sandevgo/memobot/internal/service/memory"
	"github.com/sandevgo/memobot/pkg/log"
)

type outcomeJSON struct {
	Kind   memory.OutcomeKind `json:"kind"`
	Result memory.Outcome     `json:"result"`
}

func outcomesJSON(outcomes []memory.Outcome) []outcomeJSON {
	out := make([]outcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, outcomeJSON{Kind: o.Kind(), Result: o})
	}
	return out
}

type captureBody struct {
	Requests []core.CaptureRequest `json:"requests"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var body captureBody
	if !decode(w, r, &body) {
		return
	}
	if len(body.Requests) == 0 {
		writeError(w, r, fmt.Errorf("%w: requests is empty", core.ErrInvalidInput))
		return
	}
	for i := range body.Requests {
		// Direct captures are not parser guesses.
		if body.Requests[i].Confidence == 0 {
			body.Requests[i].Confidence = 1
		}
	}
	outcomes, err := s.deps.Memory.CaptureAll(r.Context(), body.Requests)
	if err != nil && len(outcomes) == 0 {
		writeError(w, r, err)
		return
	}
	resp := map[string]any{"outcomes": outcomesJSON(outcomes)}
	if err != nil {
		// Earlier requests in the batch were applied.
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type inboxBody struct {
	Text string `json:"text"`
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	var body inboxBody
	if !decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, r, fmt.Errorf("%w: text is empty", core.ErrInvalidInput))
		return
	}

	res, outcomes, err := s.deps.Ingester.Ingest(r.Context(), body.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := map[string]any{
		"intent":     res.Intent,
		"confidence": res.Confidence,
		"outcomes":   outcomesJSON(outcomes),
	}
	if res.Intent == core.IntentListPending {
		f := core.ItemFilter{Status: core.StatusPending}
		if res.PersonName != "" {
			p, err := s.deps.People.Lookup(r.Context(), res.PersonName)
			if err != nil {
				writeError(w, r, err)
				return
			}
			f.PersonID = p.ID
		}
		items, err := s.deps.Memory.List(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp["items"] = items
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := core.ItemFilter{
		PersonID: q.Get("person_id"),
		Status:   core.ItemStatus(q.Get("status")),
		Kind:     core.ItemKind(q.Get("kind")),
	}
	if f.Status == "" {
		f.Status = core.StatusPending
	}
	switch f.Status {
	case core.StatusPending, core.StatusDiscussed, core.StatusArchived:
	default:
		writeError(w, r, fmt.Errorf("%w: unknown status %q", core.ErrInvalidInput, f.Status))
		return
	}

	items, err := s.deps.Memory.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	personID, eventID := q.Get("person_id"), q.Get("event_id")
	if name := q.Get("person"); name != "" && personID == "" {
		p, err := s.deps.People.Lookup(r.Context(), name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		personID = p.ID
	}

	b, err := s.deps.Memory.Briefing(r.Context(), personID, eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type closeBody struct {
	IDs     []string `json:"ids"`
	EventID string   `json:"event_id,omitempty"`
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var body closeBody
	if !decode(w, r, &body) {
		return
	}
	report, err := s.deps.Memory.Close(r.Context(), body.IDs, body.EventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type postponeBody struct {
	Until *time.Time `json:"until,omitempty"`
	Delay string     `json:"delay,omitempty"`
}

func (s *Server) handlePostpone(w http.ResponseWriter, r *http.Request) {
	var body postponeBody
	if !decode(w, r, &body) {
		return
	}

	var until time.Time
	switch {
	case body.Until != nil:
		until = *body.Until
	case body.Delay != "":
		d, err := command.ParseDelay(body.Delay)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %w", core.ErrInvalidInput, err))
			return
		}
		until = s.deps.Now().Add(d)
	default:
		writeError(w, r, fmt.Errorf("%w: until or delay is required", core.ErrInvalidInput))
		return
	}

	t, err := s.deps.Memory.Postpone(r.Context(), chi.URLParam(r, "id"), until)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.History.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type eventBody struct {
	Provider        string    `json:"provider,omitempty"`
	ProviderEventID string    `json:"provider_event_id,omitempty"`
	Title           string    `json:"title"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at,omitzero"`
	Attendees       []string  `json:"attendees,omitempty"`
	Person          string    `json:"person,omitempty"`
}

func (s *Server) handleUpsertEvent(w http.ResponseWriter, r *http.Request) {
	var body eventBody
	if !decode(w, r, &body) {
		return
	}
	res, err := s.deps.Calendar.Upsert(r.Context(), core.CalendarEvent{
		Provider:        body.Provider,
		ProviderEventID: body.ProviderEventID,
		Title:           body.Title,
		StartAt:         body.StartAt,
		EndAt:           body.EndAt,
		Attendees:       body.Attendees,
	}, body.Person)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	personID := q.Get("person_id")
	if name := q.Get("person"); name != "" && personID == "" {
		p, err := s.deps.People.Lookup(r.Context(), name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		personID = p.ID
	}
	if personID == "" {
		writeError(w, r, fmt.Errorf("%w: person_id or person is required", core.ErrInvalidInput))
		return
	}

	events, err := s.deps.Calendar.Upcoming(r.Context(), personID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if events == nil {
		events = []core.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", core.ErrInvalidInput, err))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrLowConfidence):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflictingUpdate):
		return http.StatusConflict
	case errors.Is(err, core.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromCtx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
