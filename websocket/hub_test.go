package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapfix-server/services"
	"snapfix-server/types"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		ServeWebSocket(hub, w, r, types.Principal{ID: 7, Role: role})
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubDeliversToPrincipal(t *testing.T) {
	hub, url := startHub(t)
	worker := types.Principal{ID: 7, Role: types.RoleWorker}
	customer := types.Principal{ID: 7, Role: types.RoleCustomer}

	workerConn := dial(t, url+"?role="+types.RoleWorker)
	customerConn := dial(t, url+"?role="+types.RoleCustomer)
	require.Eventually(t, func() bool {
		return hub.Connected(context.Background(), worker) == 1 &&
			hub.Connected(context.Background(), customer) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Notify(worker, services.Event{Type: services.EventBookingCreated, BookingID: 3, Timestamp: time.Now()})
	hub.Notify(customer, services.Event{Type: services.EventBookingUpdated, BookingID: 3, Timestamp: time.Now()})

	got := readMessage(t, workerConn)
	assert.Equal(t, services.EventBookingCreated, got.Type)
	assert.Equal(t, uint(3), got.BookingID)

	got = readMessage(t, customerConn)
	assert.Equal(t, services.EventBookingUpdated, got.Type)
}

func TestHubPingPong(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?role="+types.RoleCustomer)
	require.Eventually(t, func() bool {
		return hub.Connected(context.Background(), types.Principal{ID: 7, Role: types.RoleCustomer}) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub, url := startHub(t)
	p := types.Principal{ID: 7, Role: types.RoleWorker}
	conn := dial(t, url+"?role="+types.RoleWorker)
	require.Eventually(t, func() bool { return hub.Connected(context.Background(), p) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Connected(context.Background(), p) == 0 }, 2*time.Second, 10*time.Millisecond)

	// Nobody is listening; this must not block.
	hub.Notify(p, services.Event{Type: services.EventPaymentReceived})
}
