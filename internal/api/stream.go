package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// StreamEvent describes websocket payloads emitted by the live evaluator.
type StreamEvent struct {
	Type       string         `json:"type"`
	Sequence   int            `json:"sequence"`
	Evaluation *EvaluationDTO `json:"evaluation,omitempty"`
	Message    string         `json:"message,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				return true
			}
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
}

// handleEvaluateStream re-evaluates the dossier on every message, which is
// how the training form recomputes the level on each keystroke. Each inbound
// message is decoded over the sample dossier; a bad message yields an error
// event and the socket stays open.
func (s *Server) handleEvaluateStream(c *gin.Context) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := &wsClient{conn: conn}
	remote := conn.RemoteAddr().String()
	logrus.WithField("remote", remote).Info("evaluation websocket connected")
	defer conn.Close()

	for seq := 1; ; seq++ {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", remote).Info("evaluation websocket closed")
			} else {
				logrus.WithError(err).Warn("evaluation websocket unexpected close")
			}
			return
		}

		event := StreamEvent{Sequence: seq, Timestamp: s.now().UTC()}
		req := newEvaluateRequest()
		if err := json.Unmarshal(payload, &req); err != nil {
			event.Type = "error"
			event.Message = fmt.Sprintf("invalid dossier: %v", err)
		} else {
			dto := s.evaluate(req.Dossier, req.Reference, sourceStream)
			event.Type = "evaluation"
			event.Evaluation = &dto
		}

		if err := client.writeJSON(event); err != nil {
			logrus.WithError(err).WithField("remote", remote).Warn("write evaluation event")
			return
		}
	}
}
