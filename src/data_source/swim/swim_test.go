package swim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-operators/src/helpers"
	"stream-operators/src/models"
)

func TestParseEnvelope(t *testing.T) {
	env, err := parseEnvelope(`@event(node:"/stock/AAAA",lane:status){timestamp:1721672123792,price:91.88,volume:,bid:11.16,ask:91.88,movement:-6,name:"Triple A"}`)
	require.NoError(t, err)
	assert.Equal(t, "event", env.Tag)
	assert.Equal(t, "/stock/AAAA", env.Node)
	assert.Equal(t, "status", env.Lane)

	body := env.Body.(map[string]interface{})
	assert.Equal(t, 91.88, body["price"])
	assert.Equal(t, 1721672123792.0, body["timestamp"])
	assert.Equal(t, -6.0, body["movement"])
	assert.Equal(t, "Triple A", body["name"])
	assert.Contains(t, body, "volume")
	assert.Nil(t, body["volume"])

	env, err = parseEnvelope(`@synced(node:"/stock/AAAA",lane:"status")`)
	require.NoError(t, err)
	assert.Equal(t, "synced", env.Tag)
	assert.Nil(t, env.Body)

	env, err = parseEnvelope(`@event(node:"/n",lane:l){a:1; b:{c:true, 'd'}}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"a": 1.0,
		"b": map[string]interface{}{"c": true, "0": "d"},
	}, env.Body)
}

func TestParseEnvelopeErrors(t *testing.T) {
	for _, text := range []string{"", "event", "@", `@event(node:"/n"`, `@event(node:"/n"){price:1`, `@event{x:"abc}`} {
		_, err := parseEnvelope(text)
		assert.Error(t, err, text)
	}
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, `@sync(node:"/stock/AAAA",lane:"status")`, formatCommand("sync", "/stock/AAAA", "status"))

	env, err := parseEnvelope(formatCommand("unlink", "/stock/AAAA", "status"))
	require.NoError(t, err)
	assert.Equal(t, "unlink", env.Tag)
	assert.Equal(t, "/stock/AAAA", env.Node)
}

func TestToStreamEvent(t *testing.T) {
	ev, err := toStreamEvent("AAAA", map[string]interface{}{"price": 10.5, "timestamp": 42.0, "bid": 1.0})
	require.NoError(t, err)
	assert.Equal(t, 10.5, ev.Price)
	assert.Equal(t, int64(42), ev.Timestamp)
	assert.Equal(t, 1.0, ev.Fields["bid"])

	_, err = toStreamEvent("AAAA", map[string]interface{}{"price": "high"})
	assert.Error(t, err)
	_, err = toStreamEvent("AAAA", 12.0)
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

type warpServer struct {
	*httptest.Server
	received chan string
}

// newWarpServer answers @sync with the given frames and records every command.
func newWarpServer(t *testing.T, frames []string) *warpServer {
	t.Helper()
	ws := &warpServer{received: make(chan string, 16)}
	upgrader := websocket.Upgrader{}
	ws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			ws.received <- string(msg)
			if strings.HasPrefix(string(msg), "@sync") {
				for _, f := range frames {
					if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
						return
					}
				}
			}
		}
	}))
	t.Cleanup(ws.Close)
	return ws
}

func (ws *warpServer) url() string {
	return "ws" + strings.TrimPrefix(ws.URL, "http")
}

func newTestSubscriber(url string) *Subscriber {
	return NewSubscriber(models.MStreamConfig{
		HostURI:            url,
		NodePattern:        "/stock/%s",
		Lane:               "status",
		SyncTimeoutSeconds: 1,
	}, nil)
}

func TestSubscribeDeliversUpdates(t *testing.T) {
	ws := newWarpServer(t, []string{
		`@linked(node:"/stock/AAAA",lane:status)`,
		`@event(node:"/stock/AAAA",lane:status){timestamp:1,price:30}`,
		`@synced(node:"/stock/AAAA",lane:status)`,
		`@event(node:"/stock/BBBB",lane:status){timestamp:2,price:99}`,
		`@event(node:"/stock/AAAA",lane:status){timestamp:3,price:40}`,
	})

	sub, err := newTestSubscriber(ws.url()).Subscribe(context.Background(), "AAAA")
	require.NoError(t, err)
	assert.Equal(t, `@sync(node:"/stock/AAAA",lane:"status")`, <-ws.received)

	latest, ok := sub.Latest()
	require.True(t, ok)
	assert.Equal(t, 30.0, latest.Price)

	first := <-sub.Updates()
	assert.Equal(t, 30.0, first.Event.Price)
	assert.Equal(t, 0.0, first.Previous.Price)

	second := <-sub.Updates()
	assert.Equal(t, 40.0, second.Event.Price)
	assert.Equal(t, 30.0, second.Previous.Price)
	assert.Equal(t, int64(3), second.Event.Timestamp)

	require.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())

	select {
	case msg := <-ws.received:
		assert.True(t, strings.HasPrefix(msg, "@unlink"), msg)
	case <-time.After(time.Second):
		t.Fatal("no @unlink received")
	}

	_, open := <-sub.Updates()
	assert.False(t, open)
}

func TestSubscribeTimesOutWithoutSync(t *testing.T) {
	ws := newWarpServer(t, []string{`@linked(node:"/stock/AAAA",lane:status)`})

	_, err := newTestSubscriber(ws.url()).Subscribe(context.Background(), "AAAA")
	require.Error(t, err)
	assert.True(t, helpers.IsSubscriptionError(err))
	assert.ErrorIs(t, err, helpers.ErrSyncTimeout)
}

func TestSubscribeHonoursCancellation(t *testing.T) {
	ws := newWarpServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestSubscriber(ws.url()).Subscribe(ctx, "AAAA")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscribeConnectFailure(t *testing.T) {
	_, err := newTestSubscriber("ws://127.0.0.1:1").Subscribe(context.Background(), "AAAA")
	assert.True(t, helpers.IsSubscriptionError(err))
}
