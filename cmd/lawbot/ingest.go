package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xhad/trafficlaw/pkg/ingest"
	"github.com/xhad/trafficlaw/pkg/loader"
	"github.com/xhad/trafficlaw/pkg/processor"
	"github.com/xhad/trafficlaw/pkg/scraper"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk the configured documents and rebuild the vector store",
	Long: `Reads every document listed under ingest.documents (docx, pdf, txt, md or
an http(s) URL), splits it into Article/Clause chunks, embeds them and replaces
the contents of the vector store.`,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pageScraper, err := scraper.NewWithConfig(scraper.ScraperConfig{
		MaxDepth:  cfg.Ingest.Scraper.MaxDepth,
		RateLimit: cfg.Ingest.Scraper.RateLimit,
		Timeout:   cfg.Ingest.Scraper.Timeout,
		Logger:    logger.Named("scraper"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize scraper: %w", err)
	}

	chunker, err := processor.NewWithConfig(processor.ProcessorConfig{})
	if err != nil {
		return fmt.Errorf("failed to initialize processor: %w", err)
	}

	embedder, err := newEmbedder()
	if err != nil {
		return err
	}

	vectorStore, err := newVectorStore(ctx)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	var storageBar *progressbar.ProgressBar
	ingester, err := ingest.NewWithConfig(ingest.IngesterConfig{
		Documents: cfg.Ingest.Documents,
		BatchSize: cfg.Database.BatchSize,
		Logger:    logger.Named("ingest"),
		OnProgress: func(done, total int) {
			if storageBar == nil {
				storageBar = getProgressBar(total, " Embedding and storing")
			}
			storageBar.Set(done)
		},
	}, loader.New(pageScraper), &chunker, embedder, vectorStore)
	if err != nil {
		return err
	}

	color.Cyan("Ingesting %d documents into %s", len(cfg.Ingest.Documents), cfg.Database.TableName)
	count, err := ingester.Run(ctx)
	if storageBar != nil {
		storageBar.Finish()
		fmt.Println()
	}
	if err != nil {
		color.Red("✗ Ingest failed: %v", err)
		return err
	}

	color.Green("✓ Stored %d chunks", count)
	return nil
}
