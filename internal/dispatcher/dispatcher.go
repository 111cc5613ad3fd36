// Package dispatcher routes decoded commands to their handlers, one at a
// time, and turns every handler outcome into exactly one response.
package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"render-worker/internal/common/errors"
	"render-worker/internal/common/logger"
	"render-worker/internal/common/metrics"
	"render-worker/internal/common/observability"
	"render-worker/internal/models"
)

// Handler serves one action.
type Handler interface {
	Handle(ctx context.Context, cmd *models.Command) (*models.Response, error)
}

type Options struct {
	Logger        logger.Logger
	Observability *observability.Observability
}

type Dispatcher struct {
	mu    sync.RWMutex
	state State

	handlers   map[models.Action]Handler
	errHandler *errors.ErrorHandler
	logger     logger.Logger
	obs        *observability.Observability
}

func New(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	d := &Dispatcher{
		state:      StateUninitialized,
		handlers:   make(map[models.Action]Handler),
		errHandler: errors.NewErrorHandler(opts.Logger),
		logger:     opts.Logger,
		obs:        opts.Observability,
	}
	metrics.SetState(string(d.state), stateNames())
	return d
}

// Register binds h to action. It must be called before MarkReady.
func (d *Dispatcher) Register(action models.Action, h Handler) {
	d.handlers[action] = h
}

func (d *Dispatcher) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// MarkReady records successful engine initialization.
func (d *Dispatcher) MarkReady() error {
	return d.fire(EventInitialized)
}

// Terminate records a graceful end: shutdown, end of input or a signal.
func (d *Dispatcher) Terminate() {
	_ = d.fire(EventTerminate)
}

// Fail records a fatal failure.
func (d *Dispatcher) Fail() {
	_ = d.fire(EventFail)
}

// Dispatch handles one command and returns its response. It never panics
// and never returns nil. A terminal response moves the dispatcher to
// terminated.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *models.Command) *models.Response {
	start := time.Now()
	action := string(cmd.Action)

	if err := d.fire(EventCommand); err != nil {
		return d.errorResponse(action, cmd.RequestID, errors.NewInternalError(
			fmt.Sprintf("worker is %s", d.State()), err.Error()))
	}

	var span trace.Span
	if d.obs != nil {
		ctx, span = d.obs.StartSpan(ctx, "command."+action,
			attribute.String("action", action),
			attribute.Int("requestId", cmd.RequestID),
		)
	}

	resp, err := d.invoke(ctx, cmd)
	if err != nil {
		resp = d.errorResponse(action, cmd.RequestID, err)
	}

	if d.obs != nil {
		d.obs.RecordCommand(ctx, action, string(resp.Status))
		observability.EndSpan(span, err)
	}
	label := d.metricLabel(cmd.Action)
	metrics.CommandsHandled.WithLabelValues(label, string(resp.Status)).Inc()
	metrics.CommandDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	d.logger.Info("Command handled", map[string]interface{}{
		"action":     action,
		"requestId":  cmd.RequestID,
		"status":     string(resp.Status),
		"durationMs": time.Since(start).Milliseconds(),
		"traceId":    observability.TraceID(ctx),
	})

	if resp.IsTerminal() {
		_ = d.fire(EventTerminate)
	} else {
		_ = d.fire(EventHandled)
	}
	return resp
}

// Reject answers a line that could not be decoded into a command.
func (d *Dispatcher) Reject(err error) *models.Response {
	resp := d.errorResponse("", 0, err)
	metrics.CommandsHandled.WithLabelValues("invalid", string(resp.Status)).Inc()
	return resp
}

func (d *Dispatcher) invoke(ctx context.Context, cmd *models.Command) (resp *models.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = errors.NewInternalError(fmt.Sprint(r), string(debug.Stack()))
		}
	}()

	h, ok := d.handlers[cmd.Action]
	if !ok {
		return nil, errors.NewUnknownActionError(string(cmd.Action))
	}

	resp, err = h.Handle(ctx, cmd)
	if err == nil && resp == nil {
		err = errors.NewInternalError("handler returned no response", "")
	}
	if resp != nil {
		resp.RequestID = cmd.RequestID
	}
	return resp, err
}

func (d *Dispatcher) errorResponse(action string, requestID int, err error) *models.Response {
	stdErr := d.errHandler.HandleCommandError(action, requestID, err)
	metrics.CommandsFailed.WithLabelValues(
		d.metricLabel(models.Action(action)),
		string(stdErr.Code),
		errors.GetErrorCategory(stdErr.Code),
	).Inc()
	return models.NewErrorResponse(requestID, string(stdErr.Code), stdErr.Message, stdErr.Diagnostic)
}

// metricLabel keeps arbitrary client-supplied action tags out of label values.
func (d *Dispatcher) metricLabel(action models.Action) string {
	if action == "" {
		return "invalid"
	}
	if _, ok := d.handlers[action]; ok {
		return string(action)
	}
	return "unknown"
}

func (d *Dispatcher) fire(event Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, err := Transition(d.state, event)
	if err != nil {
		return err
	}
	if next != d.state {
		d.logger.Debug("Dispatcher state changed", map[string]interface{}{
			"from":  string(d.state),
			"to":    string(next),
			"event": string(event),
		})
		d.state = next
		metrics.SetState(string(next), stateNames())
	}
	return nil
}

func stateNames() []string {
	names := make([]string, len(AllStates))
	for i, s := range AllStates {
		names[i] = string(s)
	}
	return names
}
