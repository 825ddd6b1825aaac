package synthesis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stream-operators/src/helpers"
	"stream-operators/src/interfaces"
	"stream-operators/src/logger"
	"stream-operators/src/metric"
	"stream-operators/src/models"
)

// FunctionRecorder persists the source of synthesized functions.
type FunctionRecorder interface {
	SaveGeneratedFunction(record models.MGeneratedFunctionRecord) error
}

type cacheEntry struct {
	mu sync.Mutex
	fn *GeneratedFunction
}

// -----------------------------------------------------------------------------

// Engine synthesizes one function per operator spec and caches it for the
// spec's lifetime. Failed syntheses are not cached.
type Engine struct {
	client     interfaces.ICompletionClient
	maxRetries int
	retryDelay time.Duration
	recorder   FunctionRecorder
	logger     *logger.Logger
	metrics    *metric.Metrics

	mu    sync.Mutex
	cache map[*models.MOperatorSpec]*cacheEntry
}

// -----------------------------------------------------------------------------

func NewEngine(client interfaces.ICompletionClient, maxRetries int, retryDelay time.Duration, log *logger.Logger, metrics *metric.Metrics) *Engine {
	if log == nil {
		log = logger.NewLogger(nil, "SynthesisEngine")
	}
	return &Engine{
		client:     client,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     log,
		metrics:    metrics,
		cache:      make(map[*models.MOperatorSpec]*cacheEntry),
	}
}

// WithRecorder makes the engine persist every new function.
func (e *Engine) WithRecorder(r FunctionRecorder) *Engine {
	e.recorder = r
	return e
}

// -----------------------------------------------------------------------------

// Synthesize returns the cached function for spec, asking the reasoning
// service for one on first use.
func (e *Engine) Synthesize(ctx context.Context, spec *models.MOperatorSpec) (*GeneratedFunction, error) {
	e.mu.Lock()
	entry, ok := e.cache[spec]
	if !ok {
		entry = &cacheEntry{}
		e.cache[spec] = entry
	}
	e.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.fn != nil {
		return entry.fn, nil
	}

	fn, err := e.synthesize(ctx, spec)
	e.metrics.RecordSynthesis(string(spec.Kind), err == nil)
	if err != nil {
		return nil, err
	}
	entry.fn = fn

	if e.recorder != nil {
		if err := e.recorder.SaveGeneratedFunction(fn.Record(spec.ID)); err != nil {
			e.logger.Warning("Failed to record generated function %s: %v", fn.Name, err)
		}
	}
	return fn, nil
}

// Forget drops the cached function for spec once its operator has stopped.
func (e *Engine) Forget(spec *models.MOperatorSpec) {
	e.mu.Lock()
	delete(e.cache, spec)
	e.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (e *Engine) synthesize(ctx context.Context, spec *models.MOperatorSpec) (*GeneratedFunction, error) {
	out, err := e.client.Complete(ctx, BuildPrompt(spec), true, e.maxRetries, e.retryDelay)
	if err != nil {
		return nil, err
	}

	source, ok := out.(string)
	if !ok {
		return nil, helpers.NewSynthesisError(fmt.Sprintf("expected function source string, got %T", out), nil)
	}

	fn, err := Compile(spec.Kind, Signature(spec), source)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Synthesized %s for %s: %s", fn.Name, spec.FunctionName(), source)
	return fn, nil
}
