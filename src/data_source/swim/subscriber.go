package swim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"stream-operators/src/analysis/core"
	"stream-operators/src/helpers"
	"stream-operators/src/interfaces"
	"stream-operators/src/logger"
	"stream-operators/src/models"

	"github.com/gorilla/websocket"
)

const (
	updateBuffer = 64
	writeTimeout = 5 * time.Second
)

// -----------------------------------------------------------------------------

// Subscriber opens value-lane downlinks over the WARP websocket protocol.
// Each subscription owns its own connection.
type Subscriber struct {
	Config models.MStreamConfig
	Dialer *websocket.Dialer
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSubscriber(cfg models.MStreamConfig, log *logger.Logger) *Subscriber {
	if log == nil {
		log = logger.NewLogger(nil, "SwimSubscriber")
	}
	return &Subscriber{
		Config: cfg,
		Dialer: &websocket.Dialer{HandshakeTimeout: 45 * time.Second},
		Logger: log,
	}
}

func (s *Subscriber) nodeURI(symbol string) string {
	pattern := s.Config.NodePattern
	if pattern == "" {
		pattern = "/stock/%s"
	}
	if strings.Contains(pattern, "%s") {
		return fmt.Sprintf(pattern, symbol)
	}
	return strings.TrimRight(pattern, "/") + "/" + symbol
}

func (s *Subscriber) syncTimeout() time.Duration {
	if s.Config.SyncTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.Config.SyncTimeoutSeconds) * time.Second
}

// -----------------------------------------------------------------------------

// Subscribe links the symbol's lane and waits for @synced.
func (s *Subscriber) Subscribe(ctx context.Context, symbol string) (interfaces.ISubscription, error) {
	node := s.nodeURI(symbol)
	lane := s.Config.Lane
	if lane == "" {
		lane = "status"
	}

	conn, _, err := s.Dialer.DialContext(ctx, s.Config.HostURI, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, helpers.NewSubscriptionError(fmt.Sprintf("failed to connect to %s", s.Config.HostURI), err)
	}

	sub := &subscription{
		symbol:   symbol,
		node:     node,
		lane:     lane,
		conn:     conn,
		logger:   s.Logger,
		updates:  make(chan models.MStreamUpdate, updateBuffer),
		synced:   make(chan struct{}),
		closing:  make(chan struct{}),
		readDone: make(chan struct{}),
	}

	if err := sub.send("sync"); err != nil {
		conn.Close()
		return nil, helpers.NewSubscriptionError(fmt.Sprintf("failed to sync %s", node), err)
	}
	go sub.readLoop()

	timer := time.NewTimer(s.syncTimeout())
	defer timer.Stop()

	select {
	case <-sub.synced:
		s.Logger.Debug("Synced %s%s", s.Config.HostURI, node)
		return sub, nil
	case <-timer.C:
		sub.Close()
		return nil, helpers.NewSubscriptionError(fmt.Sprintf("%s did not sync within %s", node, s.syncTimeout()), helpers.ErrSyncTimeout)
	case <-sub.readDone:
		sub.Close()
		return nil, helpers.NewSubscriptionError(fmt.Sprintf("connection closed before %s synced", node), sub.readErr)
	case <-ctx.Done():
		sub.Close()
		return nil, ctx.Err()
	}
}

// -----------------------------------------------------------------------------

type subscription struct {
	symbol string
	node   string
	lane   string
	conn   *websocket.Conn
	logger *logger.Logger

	updates  chan models.MStreamUpdate
	synced   chan struct{}
	closing  chan struct{}
	readDone chan struct{}
	readErr  error

	writeMu   sync.Mutex
	syncOnce  sync.Once
	closeOnce sync.Once

	mu        sync.RWMutex
	latest    models.MStreamEvent
	hasLatest bool
}

func (s *subscription) Updates() <-chan models.MStreamUpdate { return s.updates }

func (s *subscription) Latest() (models.MStreamEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasLatest
}

func (s *subscription) send(tag string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(formatCommand(tag, s.node, s.lane)))
}

// Close sends @unlink, drops the connection and waits for the reader to stop.
func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)
		_ = s.send("unlink")
		err = s.conn.Close()
		<-s.readDone
	})
	return err
}

// -----------------------------------------------------------------------------

func (s *subscription) readLoop() {
	defer close(s.readDone)
	defer close(s.updates)

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closing:
			default:
				s.readErr = err
				s.logger.Warning("Downlink %s closed: %v", s.node, err)
			}
			return
		}

		env, err := parseEnvelope(string(msg))
		if err != nil {
			s.logger.Debug("Ignoring frame %q: %v", msg, err)
			continue
		}
		if env.Node != "" && env.Node != s.node {
			continue
		}

		switch env.Tag {
		case "linked":
			s.logger.Debug("Linked %s", s.node)
		case "synced":
			s.syncOnce.Do(func() { close(s.synced) })
		case "event":
			ev, err := toStreamEvent(s.symbol, env.Body)
			if err != nil {
				s.logger.Warning("Skipping event on %s: %v", s.node, err)
				continue
			}
			if !s.deliver(ev) {
				return
			}
		case "unlinked":
			s.logger.Info("Downlink %s unlinked by host", s.node)
			return
		}
	}
}

func (s *subscription) deliver(ev models.MStreamEvent) bool {
	s.mu.Lock()
	prev := s.latest
	s.latest, s.hasLatest = ev, true
	s.mu.Unlock()

	select {
	case s.updates <- models.MStreamUpdate{Event: ev, Previous: prev}:
		return true
	case <-s.closing:
		return false
	}
}

// -----------------------------------------------------------------------------

// toStreamEvent converts a status record into an event. The record must carry a numeric price.
func toStreamEvent(symbol string, body interface{}) (models.MStreamEvent, error) {
	record, ok := body.(map[string]interface{})
	if !ok {
		return models.MStreamEvent{}, fmt.Errorf("expected record body, got %T", body)
	}
	price, err := core.ToFloat(record["price"])
	if err != nil {
		return models.MStreamEvent{}, fmt.Errorf("price: %w", err)
	}

	ev := models.MStreamEvent{
		Symbol:     symbol,
		Price:      price,
		Fields:     record,
		ReceivedAt: time.Now(),
	}
	if ts, err := core.ToFloat(record["timestamp"]); err == nil {
		ev.Timestamp = int64(ts)
	}
	return ev, nil
}
