package addon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/inboxdraft/internal/cards"
	"github.com/teemow/inboxdraft/internal/instrumentation"
	"github.com/teemow/inboxdraft/internal/logging"
)

// ActionsPath is the URL prefix every action is served under.
const ActionsPath = "/actions/"

// MaxEventBytes caps the size of a decoded event object.
const MaxEventBytes = 1 << 20

// ErrUnknownAction is returned for an action name with no handler.
var ErrUnknownAction = errors.New("unknown action")

// HandlerFunc handles one trigger or action.
type HandlerFunc func(ctx context.Context, ev *Event) (*cards.RenderActions, error)

// RouterOptions configures a Router.
type RouterOptions struct {
	URLs    cards.ActionURLs
	Flow    *Flow
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// Router maps action names to handlers and turns handler errors into the
// error card.
type Router struct {
	handlers map[string]HandlerFunc
	urls     cards.ActionURLs
	flow     *Flow
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
}

// NewRouter creates an empty Router.
func NewRouter(opts RouterOptions) *Router {
	if opts.Flow == nil {
		opts.Flow = NewFlow()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Router{
		handlers: make(map[string]HandlerFunc),
		urls:     opts.URLs,
		flow:     opts.Flow,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		audit:    opts.Audit,
	}
}

// Register installs fn for name, replacing any earlier handler.
func (r *Router) Register(name string, fn HandlerFunc) {
	r.handlers[name] = fn
}

// Actions returns the registered action names.
func (r *Router) Actions() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// notifyOnFailure lists the actions that report any failure, including a
// stale card, as a notification instead of the error card.
var notifyOnFailure = map[string]string{
	cards.ActionCreateReplyDraft:    draftFailedTextPrefix,
	cards.ActionCreateCalendarEvent: eventFailedTextPrefix,
}

// Dispatch runs the handler for name. Only ErrUnknownAction is returned as
// an error; every other failure is rendered as the error card.
func (r *Router) Dispatch(ctx context.Context, name string, ev *Event) (*cards.RenderActions, error) {
	fn, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}

	ctx, span := instrumentation.StartActionSpan(ctx, name,
		attribute.String(instrumentation.SpanAttrScreen, ev.Screen()))
	logger := logging.FromContext(ctx, r.logger).With(logging.Action(name))
	invocation := instrumentation.NewActionInvocation(name).
		WithRequest(logging.RequestIDFromContext(ctx), logging.AnonymizeEmail(ev.Account()), ev.Common.HostApp).
		WithMessage(ev.MessageID()).
		WithSpanContext(ctx)

	ra, err := r.run(ctx, name, fn, ev)
	if err != nil {
		logger.Warn("action failed", logging.Err(err))
		if prefix, ok := notifyOnFailure[name]; ok {
			ra = cards.Notify(prefix + userMessage(err))
		} else {
			ra = cards.Push(r.urls.ErrorCard(userMessage(err)))
		}
	}

	invocation.Complete(err)
	r.audit.LogAction(invocation)
	r.metrics.RecordActionInvocation(ctx, name, invocation.Status(), invocation.Duration)
	instrumentation.EndSpan(span, err)
	return ra, nil
}

func (r *Router) run(ctx context.Context, name string, fn HandlerFunc, ev *Event) (*cards.RenderActions, error) {
	if !IsTrigger(name) {
		op, err := r.flow.Next(ev.Screen(), name)
		if err != nil {
			return nil, err
		}
		ctx = withOp(ctx, op)
	}

	ra, err := fn(ctx, ev)
	if err != nil {
		return nil, err
	}
	if ra == nil {
		return nil, fmt.Errorf("action %s returned no response", name)
	}
	return ra, nil
}

// ServeHTTP serves POST /actions/{name}.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.Trim(strings.TrimPrefix(req.URL.Path, ActionsPath), "/")
	if _, ok := r.handlers[name]; !ok || name == "" {
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}

	var ev Event
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, MaxEventBytes))
	if err := dec.Decode(&ev); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "event too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "malformed event: "+err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	ra, err := r.Dispatch(req.Context(), name, &ev)
	if errors.Is(err, ErrUnknownAction) {
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}

	var body any = cards.Envelope{RenderActions: ra}
	if IsTrigger(name) {
		body = ra
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.FromContext(req.Context(), r.logger).Error("failed to encode response",
			logging.Action(name), logging.Err(err))
		return
	}
	logging.FromContext(req.Context(), r.logger).Debug("action served",
		logging.Action(name), slog.Duration(logging.KeyDuration, time.Since(start)))
}
