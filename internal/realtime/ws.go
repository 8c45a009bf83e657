package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dealdesk/internal/view"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxIntentBytes = 4096
)

// Event types pushed to the page.
const (
	EventIdentity        = "identity"
	EventDeals           = "deals"
	EventNotice          = "notice"
	EventOpenEditor      = "openEditor"
	EventCloseEditor     = "closeEditor"
	EventResetCreateForm = "resetCreateForm"
)

// Intent types sent by the page.
const (
	IntentCreate     = "create"
	IntentEdit       = "edit"
	IntentUpdate     = "update"
	IntentDelete     = "delete"
	IntentCancelEdit = "cancelEdit"
)

// ErrMalformedIntent is returned for a message that is not an intent. The
// connection stays usable.
var ErrMalformedIntent = errors.New("malformed intent")

type Event struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	HTML    string          `json:"html,omitempty"`
	Items   []view.Fragment `json:"items,omitempty"`
	Message string          `json:"message,omitempty"`
	Editor  *view.EditForm  `json:"editor,omitempty"`
}

type Intent struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// NewUpgrader accepts the listed origins. With no origins only same-origin
// requests are accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	u := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	if len(allowedOrigins) == 0 {
		return u
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	u.CheckOrigin = func(r *http.Request) bool {
		_, ok := allowed[r.Header.Get("Origin")]
		return ok
	}
	return u
}

// Conn is one page websocket. It implements controller.Surface.
type Conn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
	done   chan struct{}
	once   sync.Once
}

// Upgrade keeps the headers already set on w (the session cookie) in the
// handshake response.
func Upgrade(u *websocket.Upgrader, w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*Conn, error) {
	var header http.Header
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}
	ws, err := u.Upgrade(w, r, header)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ws.SetReadLimit(maxIntentBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &Conn{ws: ws, logger: logger, done: make(chan struct{})}
	go c.keepAlive()
	return c, nil
}

func (c *Conn) ReadIntent() (Intent, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return Intent{}, err
	}
	var in Intent
	if err := json.Unmarshal(data, &in); err != nil {
		c.logger.Debug("dropping message", zap.Error(err))
		return Intent{}, ErrMalformedIntent
	}
	return in, nil
}

func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.mu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Conn) send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(ev); err != nil {
		c.logger.Debug("could not write event", zap.String("type", ev.Type), zap.Error(err))
	}
}

func (c *Conn) ShowIdentity(line string) {
	c.send(Event{Type: EventIdentity, Text: line})
}

func (c *Conn) ShowDeals(list view.List) {
	html, err := list.HTML()
	if err != nil {
		c.logger.Error("could not render deals", zap.Error(err))
		return
	}
	c.send(Event{Type: EventDeals, HTML: string(html), Items: list.Items})
}

func (c *Conn) ShowNotice(message string) {
	c.send(Event{Type: EventNotice, Message: message})
}

func (c *Conn) OpenEditor(form view.EditForm) {
	c.send(Event{Type: EventOpenEditor, Editor: &form})
}

func (c *Conn) CloseEditor() {
	c.send(Event{Type: EventCloseEditor})
}

func (c *Conn) ResetCreateForm() {
	c.send(Event{Type: EventResetCreateForm})
}
