// Package httpapi exposes the memory engine over a small JSON API.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/service/calendar"
	"github.com/sandevgo/memobot/internal/service/memory"
	"github.com/sandevgo/memobot/pkg/log"
)

type MemoryService interface {
	CaptureAll(ctx context.Context, reqs []core.CaptureRequest) ([]memory.Outcome, error)
	List(ctx context.Context, f core.ItemFilter) ([]core.MemoryItem, error)
	Briefing(ctx context.Context, personID, eventID string) (core.Briefing, error)
	Close(ctx context.Context, ids []string, eventID string) (memory.CloseReport, error)
	Postpone(ctx context.Context, id string, until time.Time) (core.Trigger, error)
}

type Ingester interface {
	Ingest(ctx context.Context, text string) (core.ParseResult, []memory.Outcome, error)
}

type PeopleService interface {
	Lookup(ctx context.Context, name string) (core.Person, error)
}

type CalendarService interface {
	Upsert(ctx context.Context, ev core.CalendarEvent, personName string) (calendar.UpsertResult, error)
	Upcoming(ctx context.Context, personID string) ([]core.CalendarEvent, error)
}

type HistoryService interface {
	History(ctx context.Context, itemID string) ([]core.InteractionEntry, error)
}

type Deps struct {
	Memory   MemoryService
	Ingester Ingester
	People   PeopleService
	Calendar CalendarService
	History  HistoryService
	Now      func() time.Time
}

type Server struct {
	addr    string
	deps    Deps
	handler http.Handler
	srv     *http.Server
}

func NewServer(addr string, d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	s := &Server{addr: addr, deps: d}
	s.handler = s.routes()
	return s
}

// Handler is the router, exposed for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/captures", s.handleCapture)
		r.Post("/inbox", s.handleInbox)
		r.Get("/items", s.handleListItems)
		r.Post("/items/close", s.handleClose)
		r.Post("/items/{id}/postpone", s.handlePostpone)
		r.Get("/items/{id}/history", s.handleHistory)
		r.Get("/briefing", s.handleBriefing)
		r.Post("/calendar/events", s.handleUpsertEvent)
		r.Get("/calendar/events", s.handleUpcomingEvents)
	})
	return r
}

func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return log.WithComponent(ctx, "http")
		},
	}
	log.FromCtx(ctx).Info().Str("addr", s.addr).Msg("starting http api")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.FromCtx(r.Context()).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}
