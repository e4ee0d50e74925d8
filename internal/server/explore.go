package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/graphwalk/internal/explorer"
	"github.com/lazypower/graphwalk/internal/interact"
	"github.com/lazypower/graphwalk/internal/render"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 << 10,
	WriteBufferSize: 64 << 10,
}

// exploreIn is a message from the browser. Type selects which fields apply.
type exploreIn struct {
	Type     string  `json:"type"`
	Query    string  `json:"query,omitempty"`
	Category string  `json:"category,omitempty"`
	ID       string  `json:"id,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	DeltaY   float64 `json:"delta_y,omitempty"`
	Key      string  `json:"key,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Notice   uint64  `json:"notice,omitempty"`
}

// exploreOut is a message to the browser.
type exploreOut struct {
	Type    string           `json:"type"` // hello, frame, status
	Session string           `json:"session,omitempty"`
	Frame   *render.Scene    `json:"frame,omitempty"`
	Status  *explorer.Status `json:"status,omitempty"`
}

// handleExplore runs one explorer session per websocket connection. The
// session loop is the only writer on the connection.
func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	send := func(m exploreOut) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m)
	}

	sess := explorer.NewSession(s.fetcher, explorer.SessionOptions{
		Explorer:      s.opts.Explorer,
		FrameInterval: s.opts.FrameInterval,
		Surface: render.SurfaceFunc(func(scene render.Scene) error {
			return send(exploreOut{Type: "frame", Frame: &scene})
		}),
		OnStatus: func(st explorer.Status) {
			if err := send(exploreOut{Type: "status", Status: &st}); err != nil {
				s.log.Debug("send status", zap.Error(err))
			}
		},
	})
	log := s.log.With(zap.String("session", sess.ID), zap.String("remote", r.RemoteAddr))

	if err := send(exploreOut{Type: "hello", Session: sess.ID}); err != nil {
		log.Debug("send hello", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		conn.Close()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return readExplore(conn, sess, log)
	})

	if err := g.Wait(); err != nil {
		log.Warn("explore session", zap.Error(err))
	}
}

// readExplore forwards browser messages to the session until the connection
// closes.
func readExplore(conn *websocket.Conn, sess *explorer.Session, log *zap.Logger) error {
	for {
		var m exploreIn
		if err := conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read", zap.Error(err))
			}
			return nil
		}
		if err := dispatch(sess, m); err != nil {
			if errors.Is(err, explorer.ErrSessionClosed) {
				return nil
			}
			log.Debug("ignored message", zap.String("type", m.Type), zap.Error(err))
		}
	}
}

var errUnknownMessage = errors.New("unknown message type")

func dispatch(sess *explorer.Session, m exploreIn) error {
	p := interact.Point{X: m.X, Y: m.Y}
	switch m.Type {
	case "search":
		return sess.Search(m.Query, m.Category)
	case "expand":
		return sess.Expand(m.ID)
	case "pointerdown":
		return sess.PointerDown(p)
	case "pointermove":
		return sess.PointerMove(p)
	case "pointerup":
		return sess.PointerUp(p)
	case "click":
		return sess.Click(p)
	case "wheel":
		return sess.Wheel(p, m.DeltaY)
	case "key":
		return sess.Key(m.Key)
	case "resize":
		return sess.Resize(m.Width, m.Height)
	case "dismiss":
		return sess.Dismiss(m.Notice)
	case "reset":
		return sess.Reset()
	default:
		return errUnknownMessage
	}
}
