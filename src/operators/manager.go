package operators

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"stream-operators/src/helpers"
	"stream-operators/src/logger"
	"stream-operators/src/models"

	"golang.org/x/sync/errgroup"
)

type managedOperator struct {
	op     *Operator
	cancel context.CancelFunc
	done   chan struct{}
	err    error // set before done is closed

	// startup failures go to the dispatcher rather than to Wait
	awaited bool
}

// -----------------------------------------------------------------------------

// Manager runs independent operator instances, each on its own goroutine.
type Manager struct {
	Runtime Runtime
	Logger  *logger.Logger

	mu        sync.RWMutex
	ctx       context.Context
	operators map[string]*managedOperator
	group     errgroup.Group
}

// -----------------------------------------------------------------------------

// NewManager creates a manager whose operators live at most as long as ctx.
func NewManager(ctx context.Context, rt Runtime) *Manager {
	log := rt.Logger
	if log == nil {
		log = logger.NewLogger(nil, "OperatorManager")
	}
	return &Manager{
		Runtime:   rt,
		Logger:    log.Named("OperatorManager"),
		ctx:       ctx,
		operators: make(map[string]*managedOperator),
	}
}

// -----------------------------------------------------------------------------

// Add prepares spec synchronously (so config and synthesis errors reach the
// caller) and then starts the operator in the background.
func (m *Manager) Add(ctx context.Context, spec *models.MOperatorSpec) (*Operator, error) {
	return m.add(ctx, spec, false)
}

func (m *Manager) add(ctx context.Context, spec *models.MOperatorSpec, awaited bool) (*Operator, error) {
	m.mu.Lock()
	if _, exists := m.operators[spec.ID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("operator %s already exists", spec.ID)
	}
	m.mu.Unlock()

	op := NewOperator(spec, m.Runtime)
	if err := op.Prepare(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(m.ctx)
	entry := &managedOperator{op: op, cancel: cancel, done: make(chan struct{}), awaited: awaited}

	m.mu.Lock()
	m.operators[spec.ID] = entry
	m.mu.Unlock()

	m.group.Go(func() error {
		defer close(entry.done)
		defer cancel()
		err := op.Run(runCtx)
		if err != nil {
			m.Logger.Error("Operator %s (%s %s) stopped with error: %v", spec.ID, spec.FunctionName(), spec.Symbol, err)
		}
		entry.err = err
		if entry.awaited {
			select {
			case <-op.Running():
			default:
				return nil
			}
		}
		return err
	})

	m.Logger.Info("Started operator %s: %s on %s", spec.ID, spec.FunctionName(), spec.Symbol)
	return op, nil
}

// -----------------------------------------------------------------------------

// Dispatch implements IDispatcher for operator commands. read_adhoc prints to
// out; read_streaming is rejected because it has no background form.
// Operator commands return once the operator is running, so a failed initial
// sync reaches the router and can be routed again.
func (m *Manager) Dispatch(ctx context.Context, cmd models.MRoutedCommand) error {
	return m.dispatch(ctx, cmd, nil)
}

func (m *Manager) dispatch(ctx context.Context, cmd models.MRoutedCommand, out io.Writer) error {
	switch cmd.FunctionName {
	case FunctionReadAdhoc:
		_, err := ReadAdhoc(ctx, m.Runtime.Subscriber, cmd.Symbol, out)
		return err
	case FunctionReadStreaming:
		return fmt.Errorf("%w: %s", helpers.ErrUnsupportedCommand, cmd.FunctionName)
	}

	spec, err := SpecFromCommand(cmd)
	if err != nil {
		return err
	}
	if _, err = m.add(ctx, spec, true); err != nil {
		return err
	}
	return m.awaitRunning(ctx, spec.ID)
}

// awaitRunning blocks until operator id is running or has ended.
func (m *Manager) awaitRunning(ctx context.Context, id string) error {
	m.mu.RLock()
	entry, ok := m.operators[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("operator %s not found", id)
	}

	select {
	case <-entry.op.Running():
		return nil
	case <-entry.done:
		select {
		case <-entry.op.Running():
			return nil
		default:
		}
		if entry.err != nil {
			return entry.err
		}
		return fmt.Errorf("operator %s ended before its stream synced: %w", id, helpers.ErrOperatorStopped)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -----------------------------------------------------------------------------

// ConsoleDispatcher runs read commands in the foreground, printing to Out,
// and hands operator commands to Manager.
type ConsoleDispatcher struct {
	Manager *Manager
	Out     io.Writer
}

func (d ConsoleDispatcher) Dispatch(ctx context.Context, cmd models.MRoutedCommand) error {
	if cmd.FunctionName == FunctionReadStreaming {
		return ReadStreaming(ctx, d.Manager.Runtime.Subscriber, cmd.Symbol, d.Out)
	}
	return d.Manager.dispatch(ctx, cmd, d.Out)
}

// -----------------------------------------------------------------------------

// Stop cancels one operator and waits for it to unsubscribe. Stopping an
// operator that has already ended returns ErrOperatorStopped.
func (m *Manager) Stop(id string) error {
	m.mu.RLock()
	entry, ok := m.operators[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("operator %s not found", id)
	}

	select {
	case <-entry.done:
		return fmt.Errorf("operator %s: %w", id, helpers.ErrOperatorStopped)
	default:
	}

	entry.cancel()
	<-entry.done
	m.Logger.Info("Stopped operator %s", id)
	return nil
}

// StopAll cancels every operator.
func (m *Manager) StopAll() {
	m.mu.RLock()
	entries := make([]*managedOperator, 0, len(m.operators))
	for _, e := range m.operators {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	for _, e := range entries {
		e.cancel()
	}
	for _, e := range entries {
		<-e.done
	}
}

// -----------------------------------------------------------------------------

// Get returns an operator by id.
func (m *Manager) Get(id string) (*Operator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.operators[id]
	if !ok {
		return nil, false
	}
	return e.op, true
}

// List returns a status snapshot of every operator, oldest first.
func (m *Manager) List() []models.MOperatorStatus {
	m.mu.RLock()
	list := make([]models.MOperatorStatus, 0, len(m.operators))
	for _, e := range m.operators {
		list = append(list, e.op.Status())
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].StartedAt.Before(list[j].StartedAt)
	})
	return list
}

// -----------------------------------------------------------------------------

// Wait blocks until every started operator has returned and reports the first
// fatal error. Add must not be called concurrently with Wait.
func (m *Manager) Wait() error {
	return m.group.Wait()
}
