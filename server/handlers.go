package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/xhad/trafficlaw/pkg/rag"
	"github.com/xhad/trafficlaw/pkg/session"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeChatRequest treats an unreadable body as an empty request.
func decodeChatRequest(r *http.Request) chatRequest {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return chatRequest{}
	}
	req.Message = strings.TrimSpace(req.Message)
	req.SessionID = strings.TrimSpace(req.SessionID)
	return req
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req := decodeChatRequest(r)
	if req.Message == "" || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, chatResponse{Reply: missingFieldsReply})
		return
	}

	reply, err := s.answer(r.Context(), req.SessionID, req.Message, nil)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuestion) || errors.Is(err, session.ErrInvalidSessionID) {
			writeJSON(w, http.StatusBadRequest, chatResponse{Reply: missingFieldsReply})
			return
		}
		writeJSON(w, http.StatusInternalServerError, chatResponse{Reply: "Lỗi server: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	req := decodeChatRequest(r)
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, chatResponse{Reply: missingFieldsReply})
		return
	}

	if err := s.sessions.Clear(r.Context(), req.SessionID); err != nil {
		writeJSON(w, http.StatusInternalServerError, chatResponse{Reply: "Lỗi server: " + err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
