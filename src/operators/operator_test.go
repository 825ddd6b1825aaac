package operators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-operators/src/helpers"
	"stream-operators/src/models"
)

var fullLifecycle = []models.OperatorState{
	models.StateCreated, models.StateSubscribed, models.StateRunning, models.StateStopped,
}

func mustSpec(t *testing.T, kind models.OperatorKind, mode models.OperatorMode, cfg, streamingOperator string) *models.MOperatorSpec {
	t.Helper()
	spec, err := NewSpec(kind, mode, "AAAA", cfg, streamingOperator)
	require.NoError(t, err)
	return spec
}

func TestMapDirect(t *testing.T) {
	sub := &fakeSubscriber{prices: []float64{10, 20}}
	client := &fakeClient{respond: func(call int, prompt string) (interface{}, error) {
		return float64(call+1) * 12, nil
	}}
	sink := &collector{}
	spec := mustSpec(t, models.KindMap, models.ModeDirect, `{"description": "apply exchange rate", "parameters": {"exchange_rate": 1.2}}`, "")

	op := NewOperator(spec, newRuntime(sub, client, sink))
	require.NoError(t, op.Run(context.Background()))

	got := sink.All()
	require.Len(t, got, 2)
	assert.Equal(t, 12.0, got[0].Result)
	assert.Equal(t, 24.0, got[1].Result)
	assert.Equal(t, 20.0, got[1].Price)
	assert.Equal(t, spec.ID, got[0].OperatorID)
	assert.Equal(t, models.KindMap, got[0].Kind)
	assert.Equal(t, int64(1001), got[1].Timestamp)

	prompt := client.Prompt(0)
	assert.Contains(t, prompt, "apply exchange rate")
	assert.Contains(t, prompt, "The current stock price is 10.")
	assert.Contains(t, prompt, `{"exchange_rate":1.2}`)

	assert.Equal(t, fullLifecycle, op.History())
	assert.True(t, sub.last().isClosed())

	status := op.Status()
	assert.Equal(t, int64(2), status.EventsProcessed)
	assert.Equal(t, int64(2), status.Emissions)
	assert.Equal(t, "map_direct", status.Function)
}

func TestFilterGenerateSynthesizesOnce(t *testing.T) {
	sub := &fakeSubscriber{prices: []float64{30, 40, 20, 35}}
	client := sourceClient(`func below(value, params) = value < params.threshold ? "true" : "false"`)
	sink := &collector{}
	spec := mustSpec(t, models.KindFilter, models.ModeGenerate, `{"description": "alert me if stock price for AAAA goes below 35", "parameters": {"threshold": 35}}`, "")

	op := NewOperator(spec, newRuntime(sub, client, sink))
	require.NoError(t, op.Run(context.Background()))

	got := sink.All()
	require.Len(t, got, 2)
	assert.Equal(t, 30.0, got[0].Price)
	assert.Equal(t, 20.0, got[1].Price)
	assert.True(t, got[0].Passed)
	assert.Equal(t, 1, client.Calls())
}

func TestFilterDirectTruthiness(t *testing.T) {
	replies := []interface{}{"TRUE", "false", true, "nope", " true "}
	sub := &fakeSubscriber{prices: []float64{1, 2, 3, 4, 5}}
	client := &fakeClient{respond: func(call int, _ string) (interface{}, error) { return replies[call], nil }}
	sink := &collector{}
	spec := mustSpec(t, models.KindFilter, models.ModeDirect, `{"parameters": {"threshold": 3}}`, "")

	require.NoError(t, NewOperator(spec, newRuntime(sub, client, sink)).Run(context.Background()))

	var prices []float64
	for _, e := range sink.All() {
		prices = append(prices, e.Price)
	}
	assert.Equal(t, []float64{1, 3, 5}, prices)
	assert.Contains(t, client.Prompt(0), "Perform a custom filter operation")
}

func TestAccumulateGenerateVariance(t *testing.T) {
	sub := &fakeSubscriber{prices: []float64{1, 2, 3, 4}}
	client := sourceClient("func v(acc, value, params) = variance(acc, value)")
	sink := &collector{}
	spec := mustSpec(t, models.KindAccumulate, models.ModeGenerate, "", "variance")

	op := NewOperator(spec, newRuntime(sub, client, sink))
	require.NoError(t, op.Run(context.Background()))

	got := sink.All()
	require.Len(t, got, 4)
	assert.Nil(t, got[0].Result)
	assert.InDelta(t, 0.5, got[1].Result, 1e-9)
	assert.InDelta(t, 1.0, got[2].Result, 1e-9)
	assert.InDelta(t, 5.0/3.0, got[3].Result, 1e-9)

	acc := op.Accumulator().(map[string]interface{})
	assert.Equal(t, 4, acc["n"])
}

func TestAccumulateDirectKeepsStateOnBadReply(t *testing.T) {
	replies := []interface{}{
		map[string]interface{}{"acc": map[string]interface{}{"count": 1.0, "mean": 10.0}, "summary": 10.0},
		map[string]interface{}{"summary": 99.0},
		"not an object",
		map[string]interface{}{"acc": map[string]interface{}{"count": 2.0, "mean": 15.0}, "summary": 15.0},
	}
	sub := &fakeSubscriber{prices: []float64{10, 11, 12, 20}}
	client := &fakeClient{respond: func(call int, _ string) (interface{}, error) { return replies[call], nil }}
	sink := &collector{}
	spec := mustSpec(t, models.KindAccumulate, models.ModeDirect, `{"window_size": 5}`, "average")

	op := NewOperator(spec, newRuntime(sub, client, sink))
	require.NoError(t, op.Run(context.Background()))

	got := sink.All()
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].Result)
	assert.Equal(t, 15.0, got[1].Result)

	assert.Contains(t, client.Prompt(0), "The current accumulator state is {}.")
	assert.Contains(t, client.Prompt(0), "Perform the average accumulation operation.")
	assert.Contains(t, client.Prompt(0), `{"window_size":5}`)
	// failed replies did not replace the accumulator
	assert.Contains(t, client.Prompt(3), `The current accumulator state is {"count":1,"mean":10}.`)
	assert.Contains(t, op.Status().LastError, "acc and summary")
}

func TestEvaluationErrorsAreSkipped(t *testing.T) {
	sub := &fakeSubscriber{prices: []float64{1, 2}}
	client := sourceClient("func f(value, params) = value * params.rate")
	sink := &collector{}
	spec := mustSpec(t, models.KindMap, models.ModeGenerate, `{"parameters": {}}`, "")

	op := NewOperator(spec, newRuntime(sub, client, sink))
	require.NoError(t, op.Run(context.Background()))
	assert.Empty(t, sink.All())
	assert.Equal(t, int64(2), op.Status().EventsProcessed)
	assert.NotEmpty(t, op.Status().LastError)
}

func TestMaxRetriesIsFatal(t *testing.T) {
	sub := &fakeSubscriber{prices: []float64{1, 2, 3}}
	client := &fakeClient{respond: func(int, string) (interface{}, error) {
		return nil, helpers.NewReasoningServiceError("gave up", fmt.Errorf("%w after 3 attempts", helpers.ErrMaxRetriesExceeded))
	}}
	sink := &collector{}
	spec := mustSpec(t, models.KindMap, models.ModeDirect, "{}", "")

	op := NewOperator(spec, newRuntime(sub, client, sink))
	err := op.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, helpers.ErrMaxRetriesExceeded)
	assert.Equal(t, 1, client.Calls())
	assert.Equal(t, models.StateStopped, op.State())
	assert.True(t, sub.last().isClosed())
}

func TestSynthesisFailureNeverSubscribes(t *testing.T) {
	sub := &fakeSubscriber{prices: []float64{1}}
	client := sourceClient("def func(new_value, operation_config): return new_value")
	spec := mustSpec(t, models.KindMap, models.ModeGenerate, "{}", "")

	op := NewOperator(spec, newRuntime(sub, client, &collector{}))
	err := op.Run(context.Background())
	require.Error(t, err)
	assert.True(t, helpers.IsSynthesisError(err))
	assert.Equal(t, 0, sub.Calls())
	assert.Equal(t, models.StateStopped, op.State())
	assert.Equal(t, []models.OperatorState{models.StateCreated, models.StateStopped}, op.History())
	assert.NotEmpty(t, op.Status().LastError)
}

func TestSubscribeFailure(t *testing.T) {
	sub := &fakeSubscriber{err: helpers.NewSubscriptionError("sync", helpers.ErrSyncTimeout)}
	spec := mustSpec(t, models.KindMap, models.ModeDirect, "{}", "")
	op := NewOperator(spec, newRuntime(sub, &fakeClient{}, &collector{}))

	err := op.Run(context.Background())
	assert.ErrorIs(t, err, helpers.ErrSyncTimeout)
	assert.Equal(t, []models.OperatorState{models.StateCreated, models.StateSubscribed, models.StateStopped}, op.History())
}

func TestCancellationStopsOperator(t *testing.T) {
	sub := &fakeSubscriber{prices: []float64{1}, keepOpen: true}
	client := sourceClient("func f(value, params) = value")
	sink := &collector{}
	spec := mustSpec(t, models.KindMap, models.ModeGenerate, "{}", "")
	op := NewOperator(spec, newRuntime(sub, client, sink))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- op.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sink.All()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("operator did not stop")
	}
	assert.Equal(t, fullLifecycle, op.History())
	assert.True(t, sub.last().isClosed())
}

func TestPrepareTwiceFails(t *testing.T) {
	spec := mustSpec(t, models.KindMap, models.ModeDirect, "{}", "")
	op := NewOperator(spec, newRuntime(&fakeSubscriber{}, &fakeClient{}, nil))
	require.NoError(t, op.Prepare(context.Background()))
	assert.Error(t, op.Prepare(context.Background()))
}

func TestStoppedOperatorCannotRestart(t *testing.T) {
	sub := &fakeSubscriber{prices: []float64{1}}
	spec := mustSpec(t, models.KindMap, models.ModeDirect, "{}", "")
	op := NewOperator(spec, newRuntime(sub, &fakeClient{}, nil))
	op.Stop()

	assert.ErrorIs(t, op.Prepare(context.Background()), helpers.ErrOperatorStopped)
	assert.ErrorIs(t, op.Run(context.Background()), helpers.ErrOperatorStopped)
	assert.Equal(t, 0, sub.Calls())
	assert.Equal(t, []models.OperatorState{models.StateCreated, models.StateStopped}, op.History())
}

func TestStopWhileSubscribedSkipsRunning(t *testing.T) {
	sub := &fakeSubscriber{prices: []float64{1}}
	spec := mustSpec(t, models.KindMap, models.ModeDirect, "{}", "")
	op := NewOperator(spec, newRuntime(sub, &fakeClient{}, nil))
	require.NoError(t, op.Prepare(context.Background()))
	op.Stop()

	assert.ErrorIs(t, op.Run(context.Background()), helpers.ErrOperatorStopped)
	assert.Equal(t, []models.OperatorState{models.StateCreated, models.StateSubscribed, models.StateStopped}, op.History())
	select {
	case <-op.Running():
		t.Fatal("running channel closed for an operator that never ran")
	default:
	}
}

func TestAccumulatorReadableWhileRunning(t *testing.T) {
	sub := &fakeSubscriber{prices: []float64{10, 20, 30}, keepOpen: true}
	client := sourceClient("func v(acc, value, params) = variance(acc, value)")
	sink := &collector{}
	spec := mustSpec(t, models.KindAccumulate, models.ModeGenerate, "", "variance")
	op := NewOperator(spec, newRuntime(sub, client, sink))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- op.Run(ctx) }()

	require.Eventually(t, func() bool {
		acc, ok := op.Accumulator().(map[string]interface{})
		return ok && acc["n"] == 3
	}, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestIsTruthy(t *testing.T) {
	assert.True(t, IsTruthy(true))
	assert.True(t, IsTruthy("True"))
	assert.True(t, IsTruthy("  TRUE"))
	assert.False(t, IsTruthy(false))
	assert.False(t, IsTruthy("yes"))
	assert.False(t, IsTruthy(1.0))
	assert.False(t, IsTruthy(nil))
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "numeric", errorType(helpers.NewNumericTypeError("x")))
	assert.Equal(t, "shape", errorType(ErrDirectAccumulateShape))
	assert.Equal(t, "evaluation", errorType(errors.New("boom")))
	assert.True(t, strings.HasPrefix(errorType(fmt.Errorf("%w", helpers.ErrMaxRetriesExceeded)), "max"))
}
