// Package server exposes the assistant over HTTP: a chat page, a JSON chat
// API and a websocket that streams answers as they are generated.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/trafficlaw/internal/models"
	"github.com/xhad/trafficlaw/pkg/rag"
	"github.com/xhad/trafficlaw/pkg/session"
	"go.uber.org/zap"
)

const (
	missingFieldsReply = "Thiếu thông tin cần thiết."
	emptyAnswerReply   = "Không có câu trả lời được tạo ra."
)

//go:embed static/index.html
var indexHTML []byte

// Answerer runs a question through the retrieval pipeline.
type Answerer interface {
	Invoke(ctx context.Context, question string, history []models.Message) (rag.State, error)
	Stream(ctx context.Context, question string, history []models.Message, onChunk func(string) error) (rag.State, error)
}

type ServerConfig struct {
	Port            string
	MaxHistoryTurns int
	Streaming       bool
	Logger          *zap.Logger
}

type Server struct {
	config   ServerConfig
	pipeline Answerer
	sessions session.Store
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWithConfig(config ServerConfig, pipeline Answerer, sessions session.Store) (*Server, error) {
	if pipeline == nil || sessions == nil {
		return nil, errors.New("server needs a pipeline and a session store")
	}
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.MaxHistoryTurns < 0 {
		return nil, fmt.Errorf("max history turns cannot be negative")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Server{
		config:   config,
		pipeline: pipeline,
		sessions: sessions,
		logger:   config.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}, nil
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("port", s.config.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// answer runs one chat turn for a session and records it in the history.
func (s *Server) answer(ctx context.Context, sessionID, message string, onChunk func(string) error) (string, error) {
	start := time.Now()
	logger := s.logger.With(zap.String("session", sessionID))

	history, err := s.sessions.History(ctx, sessionID, s.config.MaxHistoryTurns)
	if err != nil {
		logger.Error("failed to load history", zap.Error(err))
		return "", err
	}

	var state rag.State
	if onChunk != nil {
		state, err = s.pipeline.Stream(ctx, message, history, onChunk)
	} else {
		state, err = s.pipeline.Invoke(ctx, message, history)
	}
	if err != nil {
		logger.Error("chat request failed", zap.Error(err), zap.Duration("latency", time.Since(start)))
		return "", err
	}

	reply := state.Generation
	if reply == "" {
		reply = emptyAnswerReply
	}

	if err := s.sessions.Append(ctx, sessionID, models.HumanMessage(message), models.AIMessage(reply)); err != nil {
		logger.Error("failed to save history", zap.Error(err))
		return "", err
	}

	logger.Info("chat request",
		zap.Int("history", len(history)),
		zap.Int("documents", len(state.Documents)),
		zap.Duration("latency", time.Since(start)),
	)
	return reply, nil
}
