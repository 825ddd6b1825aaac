package operators

import (
	"context"
	"sync"
	"time"

	"stream-operators/src/interfaces"
	"stream-operators/src/models"
	"stream-operators/src/synthesis"
)

// fakeSubscription delivers a fixed set of updates.
type fakeSubscription struct {
	updates   chan models.MStreamUpdate
	latest    models.MStreamEvent
	hasLatest bool
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func (s *fakeSubscription) Updates() <-chan models.MStreamUpdate { return s.updates }

func (s *fakeSubscription) Latest() (models.MStreamEvent, bool) { return s.latest, s.hasLatest }

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.updates) })
	return nil
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeSubscriber hands out subscriptions replaying prices. With keepOpen the
// update channel stays open until the subscription is closed.
type fakeSubscriber struct {
	mu       sync.Mutex
	prices   []float64
	keepOpen bool
	err      error
	subs     []*fakeSubscription
	calls    int
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, symbol string) (interfaces.ISubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	sub := &fakeSubscription{updates: make(chan models.MStreamUpdate, len(f.prices)+1)}
	var prev models.MStreamEvent
	for i, p := range f.prices {
		ev := models.MStreamEvent{Symbol: symbol, Price: p, Timestamp: int64(1000 + i), ReceivedAt: time.Now()}
		if i == 0 {
			sub.latest, sub.hasLatest = ev, true
		}
		sub.updates <- models.MStreamUpdate{Event: ev, Previous: prev}
		prev = ev
	}
	if !f.keepOpen {
		sub.closeOnce.Do(func() { close(sub.updates) })
	}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeSubscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSubscriber) last() *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

// fakeClient answers completions through respond and records prompts.
type fakeClient struct {
	mu      sync.Mutex
	respond func(call int, prompt string) (interface{}, error)
	prompts []string
}

func (c *fakeClient) Complete(ctx context.Context, prompt string, expectJSON bool, maxRetries int, retryDelay time.Duration) (interface{}, error) {
	c.mu.Lock()
	call := len(c.prompts)
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return c.respond(call, prompt)
}

func (c *fakeClient) CompleteObject(ctx context.Context, prompt string, maxRetries int, retryDelay time.Duration) (map[string]interface{}, error) {
	out, err := c.Complete(ctx, prompt, true, maxRetries, retryDelay)
	if err != nil {
		return nil, err
	}
	obj, _ := out.(map[string]interface{})
	return obj, nil
}

func (c *fakeClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

func (c *fakeClient) Prompt(i int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompts[i]
}

// sourceClient always returns the same generated source.
func sourceClient(source string) *fakeClient {
	return &fakeClient{respond: func(int, string) (interface{}, error) { return source, nil }}
}

// collector records emissions.
type collector struct {
	mu        sync.Mutex
	emissions []models.MEmission
}

func (c *collector) Emit(e models.MEmission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emissions = append(c.emissions, e)
}

func (c *collector) All() []models.MEmission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.MEmission(nil), c.emissions...)
}

func newRuntime(sub interfaces.ISubscriber, client *fakeClient, sink interfaces.IEmitter) Runtime {
	return Runtime{
		Subscriber: sub,
		Client:     client,
		Engine:     synthesis.NewEngine(client, 1, 0, nil, nil),
		Emitter:    sink,
		MaxRetries: 1,
	}
}
