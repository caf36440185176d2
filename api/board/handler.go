// Package board exposes the dispatch board and the drag-and-drop gesture
// machine over HTTP.
package board

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/kilianp07/dispatchboard/core/audit"
	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/grid"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/schedule"
	"github.com/kilianp07/dispatchboard/infra/logger"
)

// Board is the read side of a dispatch session.
type Board interface {
	Ensure(ctx context.Context, r model.DateRange) error
	Refresh(ctx context.Context) error
	Week(anchor model.Date) (grid.Grid, error)
	Utilization(anchor model.Date) (grid.Utilization, error)
	Day(d model.Date) (grid.DayView, error)
	Unassigned() ([]model.WorkOrder, error)
	View() schedule.View
}

// Gestures is the drag-and-drop state machine.
type Gestures interface {
	Begin(workOrderID string) error
	Drop(ctx context.Context, target string) (dispatch.Result, error)
	Cancel() bool
	Gesture() dispatch.GestureState
}

type Handler struct {
	board      Board
	gestures   Gestures
	audit      audit.Store
	token      string
	retryAfter time.Duration
	validate   *validator.Validate
	translator ut.Translator
	log        logger.Logger
	now        func() time.Time

	Mux *chi.Mux
}

// Option customizes a Handler.
type Option func(*Handler)

// WithToken requires "Authorization: Bearer <token>" on every route.
func WithToken(token string) Option { return func(h *Handler) { h.token = token } }

// WithRetryAfter sets the hint sent with 503 answers.
func WithRetryAfter(d time.Duration) Option { return func(h *Handler) { h.retryAfter = d } }

// WithClock replaces time.Now, used for the default anchor date.
func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

func NewHandler(b Board, g Gestures, store audit.Store, opts ...Option) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	if store == nil {
		store = audit.NopStore{}
	}
	h := &Handler{
		board:      b,
		gestures:   g,
		audit:      store,
		retryAfter: 5 * time.Second,
		validate:   validate,
		translator: trans,
		log:        logger.New("api"),
		now:        time.Now,
		Mux:        chi.NewRouter(),
	}
	for _, o := range opts {
		o(h)
	}
	h.RegisterRoutes()
	return h, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(middleware.RequestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", h.Health)

	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/api/board", func(r chi.Router) {
			r.Get("/week", h.GetWeek)
			r.Get("/day", h.GetDay)
			r.Get("/unassigned", h.GetUnassigned)
			r.Get("/state", h.GetState)
			r.Post("/refresh", h.Refresh)
		})
		r.Route("/api/gestures", func(r chi.Router) {
			r.Get("/", h.GetGesture)
			r.Post("/begin", h.BeginGesture)
			r.Post("/drop", h.DropGesture)
			r.Post("/cancel", h.CancelGesture)
		})
		r.Get("/api/audit", h.GetAudit)
	})
}
