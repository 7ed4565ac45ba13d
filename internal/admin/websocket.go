package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12
	subBuffer  = 4
)

// wsEnvelope is every message written to a websocket client.
type wsEnvelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// wsAction is a client request sent over the socket.
// Actions: dispatch, toggle_stream, test_alert, reshuffle.
type wsAction struct {
	Action  string `json:"action"`
	Command string `json:"command,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConnect streams a snapshot after every engine change and accepts actions.
func (s *Server) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("ws upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	snaps, cancel := s.eng.Subscribe(subBuffer)
	defer cancel()

	replies := make(chan wsEnvelope, subBuffer)
	done := make(chan struct{})
	go s.startReader(conn, replies, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug("ws ping failed", "err", err)
				return
			}
		case env := <-replies:
			if err := s.write(conn, env); err != nil {
				return
			}
		case snap, ok := <-snaps:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := s.write(conn, wsEnvelope{Type: "state", Data: snap}); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(env); err != nil {
		s.log.Debug("ws write failed", "err", err)
		return err
	}
	return nil
}

// startReader applies client actions and detects disconnects. Replies go
// through the writer loop; gorilla connections allow one writer at a time.
func (s *Server) startReader(conn *websocket.Conn, replies chan<- wsEnvelope, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.log.Debug("ws read closed", "err", err)
			return
		}
		var a wsAction
		if err := json.Unmarshal(data, &a); err != nil {
			s.reply(replies, wsEnvelope{Type: "error", Error: "invalid message: " + err.Error()})
			continue
		}
		if env, ok := s.apply(a); ok {
			s.reply(replies, env)
		}
	}
}

func (s *Server) apply(a wsAction) (wsEnvelope, bool) {
	switch a.Action {
	case "dispatch":
		p, err := s.eng.Dispatch(a.Command)
		if err != nil {
			return wsEnvelope{Type: "error", Error: err.Error()}, true
		}
		return wsEnvelope{Type: "dispatched", Data: p}, true
	case "toggle_stream":
		s.eng.ToggleStream()
	case "test_alert":
		s.eng.TriggerTestAlert()
	case "reshuffle":
		s.eng.Reshuffle()
	default:
		return wsEnvelope{Type: "error", Error: "unknown action " + a.Action}, true
	}
	return wsEnvelope{}, false
}

func (s *Server) reply(replies chan<- wsEnvelope, env wsEnvelope) {
	select {
	case replies <- env:
	default:
		s.log.Warn("ws reply dropped", "type", env.Type)
	}
}
