package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message types exchanged over the websocket.
const (
	TypeChat     = "chat"
	TypeReset    = "reset"
	TypeStatus   = "status"
	TypeStream   = "stream"
	TypeResponse = "response"
	TypeError    = "error"
)

type Message struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// ctx ends when the peer goes away, which stops any answer in progress.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	incoming := make(chan []byte)
	go func() {
		defer close(incoming)
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warn("websocket read failed", zap.Error(err))
				}
				return
			}
			select {
			case incoming <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Messages on one connection are answered in order, and only this loop
	// writes to conn.
	for data := range incoming {
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendMessage(conn, Message{Type: TypeError, Content: "Tin nhắn không hợp lệ."})
			continue
		}
		s.handleMessage(ctx, conn, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, msg Message) {
	sessionID := strings.TrimSpace(msg.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
		s.sendMessage(conn, Message{Type: TypeStatus, Content: "session", SessionID: sessionID})
	}

	switch msg.Type {
	case TypeReset:
		if err := s.sessions.Clear(ctx, sessionID); err != nil {
			s.sendMessage(conn, Message{Type: TypeError, Content: "Lỗi server: " + err.Error(), SessionID: sessionID})
			return
		}
		s.sendMessage(conn, Message{Type: TypeStatus, Content: "reset", SessionID: sessionID})
		return
	case TypeChat, "":
	default:
		s.sendMessage(conn, Message{Type: TypeError, Content: "Loại tin nhắn không hỗ trợ: " + msg.Type, SessionID: sessionID})
		return
	}

	question := strings.TrimSpace(msg.Content)
	if question == "" {
		s.sendMessage(conn, Message{Type: TypeError, Content: missingFieldsReply, SessionID: sessionID})
		return
	}

	var onChunk func(string) error
	if s.config.Streaming {
		onChunk = func(chunk string) error {
			return conn.WriteJSON(Message{Type: TypeStream, Content: chunk, SessionID: sessionID})
		}
	}

	reply, err := s.answer(ctx, sessionID, question, onChunk)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.sendMessage(conn, Message{Type: TypeError, Content: "Lỗi server: " + err.Error(), SessionID: sessionID})
		return
	}
	s.sendMessage(conn, Message{Type: TypeResponse, Content: reply, SessionID: sessionID})
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Warn("failed to send websocket message", zap.Error(err))
	}
}
