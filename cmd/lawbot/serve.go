package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xhad/trafficlaw/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat page, JSON API and websocket",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vectorStore, err := newVectorStore(ctx)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	pipeline, err := newPipeline(vectorStore)
	if err != nil {
		return err
	}

	sessions, closeSessions, err := newSessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	srv, err := server.NewWithConfig(server.ServerConfig{
		Port:            cfg.Server.Port,
		MaxHistoryTurns: cfg.Retrieval.MaxHistoryTurns,
		Streaming:       cfg.Server.Streaming,
		Logger:          logger.Named("server"),
	}, pipeline, sessions)
	if err != nil {
		return err
	}

	return srv.ListenAndServe(ctx)
}
