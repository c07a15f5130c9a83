package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/trafficlaw/internal/models"
	"github.com/xhad/trafficlaw/pkg/llm"
	"github.com/xhad/trafficlaw/pkg/rag"
	"github.com/xhad/trafficlaw/pkg/session"
	"github.com/xhad/trafficlaw/server"
)

const cliSession = "cli"

var (
	noStream    bool
	showSources bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&noStream, "no-stream", false, "Print the answer only once it is complete")
	chatCmd.Flags().BoolVar(&showSources, "sources", true, "Print the articles the answer was based on")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	vectorStore, err := newVectorStore(ctx)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	pipeline, err := newPipeline(vectorStore)
	if err != nil {
		return err
	}

	c := &chatSession{
		pipeline:  pipeline,
		history:   session.NewMemoryStore(),
		maxTurns:  cfg.Retrieval.MaxHistoryTurns,
		streaming: cfg.Server.Streaming && !noStream,
		sources:   showSources,
	}
	return c.run(ctx, os.Stdin)
}

// chatSession is the interactive terminal loop. Output goes to color.Output.
type chatSession struct {
	pipeline  server.Answerer
	history   session.Store
	maxTurns  int
	streaming bool
	sources   bool
}

func (c *chatSession) run(ctx context.Context, in io.Reader) error {
	color.Cyan("\nTrợ lý Luật Giao thông (gõ 'exit' để thoát, 'reset' để bắt đầu lại)")

	scanner := bufio.NewScanner(in)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nBạn: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "reset":
			if err := c.history.Clear(ctx, cliSession); err != nil {
				color.Red("Lỗi: %v\n", err)
				continue
			}
			color.Yellow("Đã xoá lịch sử trò chuyện.")
			continue
		}

		turns, err := c.history.History(ctx, cliSession, c.maxTurns)
		if err != nil {
			return err
		}

		var state rag.State
		if c.streaming {
			responseSpinner := getSpinner(" Đang tìm kiếm...")
			firstChunk := true
			state, err = c.pipeline.Stream(ctx, query, turns, func(chunk string) error {
				if firstChunk {
					responseSpinner.Finish()
					firstChunk = false
					fmt.Fprint(color.Output, "\n")
					assistantPrompt("Trợ lý: ")
				}
				fmt.Fprint(color.Output, chunk)
				return nil
			})
			if firstChunk {
				responseSpinner.Finish()
			}
			fmt.Fprint(color.Output, "\n")
		} else {
			responseSpinner := getSpinner(" Đang tạo câu trả lời...")
			state, err = c.pipeline.Invoke(ctx, query, turns)
			responseSpinner.Finish()
			if err == nil {
				assistantPrompt("\nTrợ lý: %s\n", state.Generation)
			}
		}

		if err != nil {
			color.Red("Lỗi: %v\n", err)
			continue
		}

		if c.sources {
			if sources := llm.FormatSources(state.Documents); sources != "" {
				color.Yellow("%s", sources)
			}
		}

		if err := c.history.Append(ctx, cliSession, models.HumanMessage(query), models.AIMessage(state.Generation)); err != nil {
			color.Red("Lỗi: %v\n", err)
		}
	}

	return scanner.Err()
}
