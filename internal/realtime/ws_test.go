package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dealdesk/internal/models"
	"dealdesk/internal/view"
)

func dial(t *testing.T, handler http.HandlerFunc) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestConn_SurfaceEvents(t *testing.T) {
	u := NewUpgrader(nil)
	client := dial(t, func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(u, w, r, zap.NewNop())
		if err != nil {
			return
		}
		defer conn.Close()

		conn.ShowIdentity("Not signed in.")
		conn.ShowDeals(view.Render([]*models.Deal{{ID: "d1", Name: "Acme Co", Stage: models.StageDealing}}))
		conn.OpenEditor(view.EditForm{ID: "d1", Name: "Acme Co", Stage: "dealing"})
		conn.ShowNotice("name required")

		in, err := conn.ReadIntent()
		if err == nil && in.Type == IntentCancelEdit {
			conn.CloseEditor()
		}
		time.Sleep(50 * time.Millisecond)
	})
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev Event
	require.NoError(t, client.ReadJSON(&ev))
	assert.Equal(t, Event{Type: EventIdentity, Text: "Not signed in."}, ev)

	ev = Event{}
	require.NoError(t, client.ReadJSON(&ev))
	assert.Equal(t, EventDeals, ev.Type)
	require.Len(t, ev.Items, 1)
	assert.Equal(t, "Acme Co — dealing", ev.Items[0].Label)
	assert.Contains(t, ev.HTML, "Acme Co")

	ev = Event{}
	require.NoError(t, client.ReadJSON(&ev))
	assert.Equal(t, EventOpenEditor, ev.Type)
	require.NotNil(t, ev.Editor)
	assert.Equal(t, "d1", ev.Editor.ID)

	ev = Event{}
	require.NoError(t, client.ReadJSON(&ev))
	assert.Equal(t, Event{Type: EventNotice, Message: "name required"}, ev)

	require.NoError(t, client.WriteJSON(Intent{Type: IntentCancelEdit}))
	ev = Event{}
	require.NoError(t, client.ReadJSON(&ev))
	assert.Equal(t, EventCloseEditor, ev.Type)
}

func TestNewUpgrader_Origins(t *testing.T) {
	u := NewUpgrader([]string{"https://deals.example.com"})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://deals.example.com")
	assert.True(t, u.CheckOrigin(r))
	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, u.CheckOrigin(r))

	assert.Nil(t, NewUpgrader(nil).CheckOrigin)
}

func TestConn_MalformedIntentKeepsConnection(t *testing.T) {
	u := NewUpgrader(nil)
	results := make(chan error, 2)
	client := dial(t, func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(u, w, r, zap.NewNop())
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 2; i++ {
			in, err := conn.ReadIntent()
			if err == nil && in.Type != IntentDelete {
				err = errors.New("unexpected intent " + in.Type)
			}
			results <- err
		}
	})

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, client.WriteJSON(Intent{Type: IntentDelete, ID: "d1"}))

	assert.ErrorIs(t, <-results, ErrMalformedIntent)
	assert.NoError(t, <-results)
}
