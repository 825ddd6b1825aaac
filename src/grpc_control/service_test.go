package grpc_control

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"stream-operators/src/helpers"
	"stream-operators/src/models"
	"stream-operators/src/operators"
)

type fakeController struct {
	mu      sync.Mutex
	specs   map[string]*models.MOperatorSpec
	stopped map[string]bool
}

func (f *fakeController) Add(ctx context.Context, spec *models.MOperatorSpec) (*operators.Operator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if spec.Mode == models.ModeGenerate && spec.Symbol == "FAIL" {
		return nil, helpers.NewSynthesisError("no function", nil)
	}
	f.specs[spec.ID] = spec
	return nil, nil
}

func (f *fakeController) Stop(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped[id] {
		return fmt.Errorf("operator %s: %w", id, helpers.ErrOperatorStopped)
	}
	if _, ok := f.specs[id]; !ok {
		return fmt.Errorf("operator %s not found", id)
	}
	delete(f.specs, id)
	f.stopped[id] = true
	return nil
}

func (f *fakeController) List() []models.MOperatorStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MOperatorStatus
	for _, s := range f.specs {
		out = append(out, models.MOperatorStatus{ID: s.ID, Function: s.FunctionName(), Symbol: s.Symbol, State: models.StateRunning})
	}
	return out
}

type fakeRouter struct{}

func (fakeRouter) Route(ctx context.Context, command string) (models.MRoutedCommand, error) {
	if command == "gibberish" {
		return models.MRoutedCommand{}, helpers.NewRoutingFailedError("could not route", nil)
	}
	return models.MRoutedCommand{FunctionName: "filter_direct", Symbol: "AAAA"}, nil
}

func newTestClient(t *testing.T) (*ControlClient, *fakeController) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctrl := &fakeController{specs: map[string]*models.MOperatorSpec{}, stopped: map[string]bool{}}

	srv := grpc.NewServer()
	RegisterControlServer(srv, NewControlService(ctrl, fakeRouter{}, nil))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewControlClient(conn), ctrl
}

func TestStartListStop(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	id, err := client.StartOperator(ctx, models.MOperatorConfig{
		Kind: "accumulate", Mode: "direct", Symbol: "AAAA", StreamingOperator: "average",
		OperationConfig: map[string]interface{}{"window_size": 5},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	list, err := client.ListOperators(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "accumulate_direct", list[0].Function)

	require.NoError(t, client.StopOperator(ctx, id))
	err = client.StopOperator(ctx, id)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	err = client.StopOperator(ctx, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestStartOperatorErrors(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.StartOperator(ctx, models.MOperatorConfig{Kind: "reduce", Mode: "direct", Symbol: "AAAA"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.StartOperator(ctx, models.MOperatorConfig{Kind: "accumulate", Mode: "direct", Symbol: "AAAA"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.StartOperator(ctx, models.MOperatorConfig{Kind: "map", Mode: "generate", Symbol: "FAIL"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	err = client.StopOperator(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestExecute(t *testing.T) {
	client, _ := newTestClient(t)

	routed, err := client.Execute(context.Background(), "alert me when AAAA drops")
	require.NoError(t, err)
	assert.Equal(t, "filter_direct", routed.FunctionName)
	assert.Equal(t, "AAAA", routed.Symbol)

	_, err = client.Execute(context.Background(), "gibberish")
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
