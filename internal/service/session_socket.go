package service

import (
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/pkg/logger"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeSessionWs 推送计时会话的倒计时和结束事件。只下行，客户端消息被丢弃。
func ServeSessionWs(m *SessionManager, w http.ResponseWriter, r *http.Request, sessionID string, actor quiz.Actor) error {
	events, unsubscribe, err := m.Subscribe(sessionID, actor)
	if err != nil {
		return err
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		logger.Log.Warn("WebSocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}

	done := make(chan struct{})
	go readPump(conn, done)
	go writePump(conn, events, unsubscribe, done)
	return nil
}

func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Debug("Session socket closed", zap.Error(err))
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, events <-chan SessionEvent, unsubscribe func(), done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		unsubscribe()
		conn.Close()
	}()
	for {
		select {
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			if ev.Type == EventFinished && ev.Session != nil && ev.Session.Submission != nil {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "finished"))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
