package events

import (
	"context"
	"fmt"
	"sync"

	obscontext "github.com/smallbiznis/fastbillsync/internal/observability/context"
	obslogger "github.com/smallbiznis/fastbillsync/internal/observability/logger"
	"github.com/smallbiznis/fastbillsync/internal/observability/metrics"
	"github.com/smallbiznis/fastbillsync/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, ev Event) error

// Dispatcher is the registry behind the host event interface. Handler
// failures are logged and never returned to the host.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *zap.Logger
	metrics  *metrics.Metrics
}

type DispatcherParams struct {
	fx.In

	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		handlers: map[string][]Handler{},
		log:      log.Named("events.dispatcher"),
		metrics:  p.Metrics,
	}
}

func (d *Dispatcher) Register(name string, handler Handler) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], handler)
}

// Replace swaps the whole binding set at once.
func (d *Dispatcher) Replace(bindings map[string][]Handler) {
	next := make(map[string][]Handler, len(bindings))
	for name, handlers := range bindings {
		next[name] = append([]Handler(nil), handlers...)
	}
	d.mu.Lock()
	d.handlers = next
	d.mu.Unlock()
}

func (d *Dispatcher) Reset() {
	d.Replace(nil)
}

func (d *Dispatcher) Bound(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[name])
}

// Dispatch runs the handlers bound to ev.Name in registration order. Only an
// invalid event is reported as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		d.metrics.RecordEvent(ctx, ev.Name, metrics.OutcomeFailed)
		return err
	}

	ctx, cid := correlation.EnsureCorrelationID(ctx, ev.CorrelationID)
	ev.CorrelationID = cid
	ctx = obscontext.WithOrderID(ctx, ev.OrderID)
	log := obslogger.WithContext(ctx, d.log).With(zap.String("event", ev.Name))

	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers[ev.Name]...)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		log.Debug("no handlers bound")
		d.metrics.RecordEvent(ctx, ev.Name, metrics.OutcomeSkipped)
		return nil
	}

	outcome := metrics.OutcomeSuccess
	for _, handler := range handlers {
		if err := d.run(ctx, handler, ev); err != nil {
			outcome = metrics.OutcomeFailed
			log.Warn("event handler failed", zap.Error(err))
		}
	}
	d.metrics.RecordEvent(ctx, ev.Name, outcome)
	return nil
}

func (d *Dispatcher) run(ctx context.Context, handler Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, ev)
}
