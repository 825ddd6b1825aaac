package operators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stream-operators/src/models"
)

// ErrDirectAccumulateShape is returned when a direct accumulate reply lacks acc or summary.
var ErrDirectAccumulateShape = errors.New("accumulate reply must contain acc and summary")

// -----------------------------------------------------------------------------

func (o *Operator) selectHandler() handlerFunc {
	switch o.spec.Kind {
	case models.KindMap:
		if o.spec.Mode == models.ModeGenerate {
			return o.mapGenerate
		}
		return o.mapDirect
	case models.KindFilter:
		if o.spec.Mode == models.ModeGenerate {
			return o.filterGenerate
		}
		return o.filterDirect
	default:
		if o.spec.Mode == models.ModeGenerate {
			return o.accumulateGenerate
		}
		return o.accumulateDirect
	}
}

func (o *Operator) complete(ctx context.Context, prompt string) (interface{}, error) {
	return o.rt.Client.Complete(ctx, prompt, true, o.rt.MaxRetries, o.rt.RetryDelay)
}

// -----------------------------------------------------------------------------
// Map
// -----------------------------------------------------------------------------

func (o *Operator) mapDirect(ctx context.Context, ev models.MStreamEvent) (*models.MEmission, error) {
	cfg := o.spec.Config
	prompt := mapDirectPrompt(cfg.DescriptionOr("Perform a custom operation"), ev.Price, cfg.Params())
	result, err := o.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &models.MEmission{Result: result, Passed: true}, nil
}

func (o *Operator) mapGenerate(ctx context.Context, ev models.MStreamEvent) (*models.MEmission, error) {
	result, err := o.fn.Call(ev.Price, o.spec.Config.Params())
	if err != nil {
		return nil, err
	}
	return &models.MEmission{Result: result, Passed: true}, nil
}

// -----------------------------------------------------------------------------
// Filter
// -----------------------------------------------------------------------------

// IsTruthy accepts boolean true or the case-insensitive string "true".
func IsTruthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}

func filterEmission(result interface{}) *models.MEmission {
	if !IsTruthy(result) {
		return nil
	}
	return &models.MEmission{Result: result, Passed: true}
}

func (o *Operator) filterDirect(ctx context.Context, ev models.MStreamEvent) (*models.MEmission, error) {
	cfg := o.spec.Config
	prompt := filterDirectPrompt(cfg.DescriptionOr("Perform a custom filter operation"), ev.Price, cfg.Params())
	result, err := o.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return filterEmission(result), nil
}

func (o *Operator) filterGenerate(ctx context.Context, ev models.MStreamEvent) (*models.MEmission, error) {
	result, err := o.fn.Call(ev.Price, o.spec.Config.Params())
	if err != nil {
		return nil, err
	}
	return filterEmission(result), nil
}

// -----------------------------------------------------------------------------
// Accumulate
// -----------------------------------------------------------------------------

// The accumulator is replaced only after a successful step, so a failed
// event leaves the previous state intact.

func (o *Operator) accumulateDirect(ctx context.Context, ev models.MStreamEvent) (*models.MEmission, error) {
	prompt := accumulateDirectPrompt(o.spec.StreamingOperator, ev.Price, o.acc, o.spec.Config.Params())
	result, err := o.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	obj, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("got %T: %w", result, ErrDirectAccumulateShape)
	}
	acc, hasAcc := obj["acc"]
	summary, hasSummary := obj["summary"]
	if !hasAcc || !hasSummary {
		return nil, ErrDirectAccumulateShape
	}

	o.setAccumulator(acc)
	return &models.MEmission{Result: summary, Accumulator: acc, Passed: true}, nil
}

func (o *Operator) accumulateGenerate(ctx context.Context, ev models.MStreamEvent) (*models.MEmission, error) {
	acc, summary, err := o.fn.CallAccumulate(o.acc, ev.Price, o.spec.Config.Params())
	if err != nil {
		return nil, err
	}
	o.setAccumulator(acc)
	return &models.MEmission{Result: summary, Accumulator: acc, Passed: true}, nil
}

func (o *Operator) setAccumulator(acc interface{}) {
	o.mu.Lock()
	o.acc = acc
	o.mu.Unlock()
}

// Accumulator returns the current accumulator state.
func (o *Operator) Accumulator() interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.acc
}
