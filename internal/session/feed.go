package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/mapforge/internal/grid"
)

const writeWait = 5 * time.Second

const (
	msgOverlay = "overlay"
	msgIntent  = "intent"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Feed is a websocket client that receives overlay snapshots and sends
// intents. Each snapshot replaces the previous one; there is no merging.
type Feed struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	current  atomic.Pointer[Overlay]
	onUpdate func(*Overlay)
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithUpdateFunc registers a callback run after each snapshot is stored. It
// runs on the feed's read goroutine.
func WithUpdateFunc(f func(*Overlay)) FeedOption {
	return func(fd *Feed) { fd.onUpdate = f }
}

// Dial connects to a session feed at url.
func Dial(ctx context.Context, url string, header http.Header, opts ...FeedOption) (*Feed, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial session feed: %w", err)
	}
	return NewFeed(conn, opts...), nil
}

// NewFeed wraps an established connection.
func NewFeed(conn *websocket.Conn, opts ...FeedOption) *Feed {
	f := &Feed{conn: conn}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Overlay returns the latest snapshot, or nil before the first one arrives.
func (f *Feed) Overlay() *Overlay {
	return f.current.Load()
}

// Run reads messages until the connection closes or ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = f.conn.Close() })
	defer stop()
	for {
		_, payload, err := f.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read session feed: %w", err)
		}
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Printf("session feed: bad message: %v", err)
			continue
		}
		if env.Type != msgOverlay {
			continue
		}
		var o Overlay
		if err := json.Unmarshal(env.Payload, &o); err != nil {
			log.Printf("session feed: bad overlay: %v", err)
			continue
		}
		f.current.Store(&o)
		if f.onUpdate != nil {
			f.onUpdate(&o)
		}
	}
}

func (f *Feed) send(in Intent) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	if err := f.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return f.conn.WriteJSON(envelope{Type: msgIntent, Payload: b})
}

func (f *Feed) sendLogged(in Intent) {
	if err := f.send(in); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Printf("session feed: send %s: %v", in.Kind, err)
	}
}

func (f *Feed) OnCellClick(c grid.Coord) {
	f.sendLogged(Intent{Kind: IntentCellClick, Cell: &c})
}

func (f *Feed) OnTokenClick(id string) {
	f.sendLogged(Intent{Kind: IntentTokenClick, TokenID: id})
}

func (f *Feed) OnTokenDrag(id string, to grid.Coord) {
	f.sendLogged(Intent{Kind: IntentTokenDrag, TokenID: id, Cell: &to})
}

// Close sends a close frame and closes the connection.
func (f *Feed) Close() error {
	f.writeMu.Lock()
	_ = f.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	f.writeMu.Unlock()
	return f.conn.Close()
}
