package operators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stream-operators/src/helpers"
	"stream-operators/src/interfaces"
	"stream-operators/src/logger"
	"stream-operators/src/metric"
	"stream-operators/src/models"
	"stream-operators/src/synthesis"
)

// MarketClock annotates emissions with the symbol's trading session.
type MarketClock interface {
	IsOpen(symbol string, t time.Time) bool
}

// Runtime bundles the collaborators shared by operator instances. None of them
// hold per-operator mutable state.
type Runtime struct {
	Subscriber interfaces.ISubscriber
	Client     interfaces.ICompletionClient
	Engine     *synthesis.Engine
	Emitter    interfaces.IEmitter
	Clock      MarketClock
	Metrics    *metric.Metrics
	MaxRetries int
	RetryDelay time.Duration
	Logger     *logger.Logger
}

type handlerFunc func(ctx context.Context, ev models.MStreamEvent) (*models.MEmission, error)

// -----------------------------------------------------------------------------

// Operator is one map/filter/accumulate pipeline bound to one symbol.
// Events are handled strictly one at a time in delivery order.
type Operator struct {
	spec   *models.MOperatorSpec
	rt     Runtime
	logger *logger.Logger

	mu        sync.Mutex
	state     models.OperatorState
	history   []models.OperatorState
	sub       interfaces.ISubscription
	processed int64
	emitted   int64
	lastErr   string
	startedAt time.Time

	running chan struct{}

	// written by the Run goroutine; acc is also guarded by mu
	fn     *synthesis.GeneratedFunction
	acc    interface{}
	handle handlerFunc
}

// -----------------------------------------------------------------------------

func NewOperator(spec *models.MOperatorSpec, rt Runtime) *Operator {
	base := rt.Logger
	if base == nil {
		base = logger.NewLogger(nil, "Operator")
	}
	if rt.MaxRetries <= 0 {
		rt.MaxRetries = 3
	}
	return &Operator{
		spec:    spec,
		rt:      rt,
		logger:  base.Named("Operator-" + shortID(spec.ID)),
		state:   models.StateCreated,
		history: []models.OperatorState{models.StateCreated},
		running: make(chan struct{}),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Spec returns the operator's spec.
func (o *Operator) Spec() *models.MOperatorSpec { return o.spec }

// State returns the current lifecycle state.
func (o *Operator) State() models.OperatorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// History returns every state the operator has been in, in order.
func (o *Operator) History() []models.OperatorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.OperatorState(nil), o.history...)
}

// Status returns an externally visible snapshot.
func (o *Operator) Status() models.MOperatorStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return models.MOperatorStatus{
		ID:              o.spec.ID,
		Function:        o.spec.FunctionName(),
		Symbol:          o.spec.Symbol,
		State:           o.state,
		EventsProcessed: o.processed,
		Emissions:       o.emitted,
		LastError:       o.lastErr,
		StartedAt:       o.startedAt,
	}
}

// Running is closed once the operator has synced and started processing.
func (o *Operator) Running() <-chan struct{} { return o.running }

// transition moves from -> to; the caller must hold mu.
func (o *Operator) transition(from, to models.OperatorState) error {
	if o.state != from || !from.CanTransition(to) {
		return fmt.Errorf("operator %s: cannot move to %s from %s", o.spec.ID, to, o.state)
	}
	o.state = to
	o.history = append(o.history, to)
	if to == models.StateRunning {
		close(o.running)
	}
	return nil
}

func (o *Operator) stoppedError() error {
	return fmt.Errorf("operator %s: %w", o.spec.ID, helpers.ErrOperatorStopped)
}

func (o *Operator) fail(err error) {
	o.mu.Lock()
	o.lastErr = err.Error()
	o.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Prepare validates the spec and, in generate mode, synthesizes the function.
// It moves Created -> Subscribed and never opens a subscription itself.
// A failed Prepare moves the operator to Stopped.
func (o *Operator) Prepare(ctx context.Context) error {
	switch state := o.State(); state {
	case models.StateCreated:
	case models.StateStopped:
		return o.stoppedError()
	default:
		return fmt.Errorf("operator %s: prepare called in state %s", o.spec.ID, state)
	}

	if err := o.prepare(ctx); err != nil {
		o.fail(err)
		o.Stop()
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transition(models.StateCreated, models.StateSubscribed)
}

func (o *Operator) prepare(ctx context.Context) error {
	if err := o.spec.Validate(); err != nil {
		return helpers.NewConfigParseError("invalid operator spec", err)
	}

	if o.spec.Mode == models.ModeGenerate {
		if o.rt.Engine == nil {
			return helpers.NewSynthesisError("no synthesis engine configured", nil)
		}
		fn, err := o.rt.Engine.Synthesize(ctx, o.spec)
		if err != nil {
			return err
		}
		o.fn = fn
	} else if o.rt.Client == nil {
		return helpers.NewReasoningServiceError("no reasoning client configured", nil)
	}

	o.handle = o.selectHandler()
	if o.spec.Kind == models.KindAccumulate {
		o.setAccumulator(map[string]interface{}{})
	}
	return nil
}

// -----------------------------------------------------------------------------

// Run prepares the operator if needed, opens the subscription and processes
// events until ctx is cancelled, the stream ends or a fatal error occurs.
// Cancellation is a normal stop and returns nil.
func (o *Operator) Run(ctx context.Context) error {
	switch o.State() {
	case models.StateCreated:
		if err := o.Prepare(ctx); err != nil {
			return err
		}
	case models.StateStopped:
		return o.stoppedError()
	}

	sub, err := o.rt.Subscriber.Subscribe(ctx, o.spec.Symbol)
	if err != nil {
		o.fail(err)
		o.Stop()
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	o.mu.Lock()
	if err := o.transition(models.StateSubscribed, models.StateRunning); err != nil {
		// stopped while waiting for the initial sync
		o.mu.Unlock()
		_ = sub.Close()
		return nil
	}
	o.sub = sub
	o.startedAt = time.Now()
	o.mu.Unlock()
	o.rt.Metrics.OperatorStarted()
	defer o.rt.Metrics.OperatorStopped()
	defer o.Stop()

	o.logger.Info("Streaming %s for %s, press Ctrl+C to stop", o.spec.FunctionName(), o.spec.Symbol)

	updates := sub.Updates()
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				o.logger.Info("Stream for %s ended", o.spec.Symbol)
				return nil
			}
			if err := o.process(ctx, upd.Event); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Stop unsubscribes and moves the operator to Stopped. Safe to call repeatedly.
func (o *Operator) Stop() {
	o.mu.Lock()
	if o.state == models.StateStopped {
		o.mu.Unlock()
		return
	}
	sub := o.sub
	o.sub = nil
	_ = o.transition(o.state, models.StateStopped)
	o.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			o.logger.Warning("Error closing subscription: %v", err)
		}
	}
	if o.rt.Engine != nil {
		o.rt.Engine.Forget(o.spec)
	}
	o.logger.Info("Streaming stopped")
}

// -----------------------------------------------------------------------------

// process handles one event. Only errors that must end the operator are returned.
func (o *Operator) process(ctx context.Context, ev models.MStreamEvent) error {
	function := o.spec.FunctionName()
	o.rt.Metrics.RecordEvent(function, o.spec.Symbol)
	o.logger.Debug("%s received: %s", o.spec.Symbol, toJSON(ev))

	start := time.Now()
	emission, err := o.handle(ctx, ev)
	o.rt.Metrics.ObserveHandler(function, time.Since(start))

	o.mu.Lock()
	o.processed++
	o.mu.Unlock()

	if err != nil {
		o.fail(err)
		o.rt.Metrics.RecordHandlerError(function, errorType(err))
		if isFatal(err) || ctx.Err() != nil {
			o.logger.Error("Operator failed: %v", err)
			return err
		}
		o.logger.Warning("Skipping event at price %s: %v", formatPrice(ev.Price), err)
		return nil
	}
	if emission == nil {
		return nil
	}

	emission.OperatorID = o.spec.ID
	emission.Symbol = o.spec.Symbol
	emission.Kind = o.spec.Kind
	emission.Mode = o.spec.Mode
	emission.Price = ev.Price
	emission.Timestamp = ev.Timestamp
	emission.CreatedAt = time.Now()
	if o.rt.Clock != nil {
		emission.MarketOpen = o.rt.Clock.IsOpen(o.spec.Symbol, emission.CreatedAt)
	}

	o.mu.Lock()
	o.emitted++
	o.mu.Unlock()
	o.rt.Metrics.RecordEmission(function, o.spec.Symbol)
	if o.rt.Emitter != nil {
		o.rt.Emitter.Emit(*emission)
	}
	return nil
}

// isFatal reports whether a per-event error ends the operator.
func isFatal(err error) bool {
	return errors.Is(err, helpers.ErrMaxRetriesExceeded) || helpers.IsCancellation(err)
}

func errorType(err error) string {
	switch {
	case helpers.IsNumericTypeError(err):
		return "numeric"
	case errors.Is(err, synthesis.ErrAccumulateShape), errors.Is(err, ErrDirectAccumulateShape):
		return "shape"
	case errors.Is(err, helpers.ErrMaxRetriesExceeded):
		return "max_retries"
	case helpers.IsReasoningServiceError(err):
		return "reasoning"
	default:
		return "evaluation"
	}
}
