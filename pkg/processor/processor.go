package processor

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xhad/trafficlaw/internal/models"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultArticlePattern = `(?i)^Điều\s+(\d+)\.?\s*(.*)`
	DefaultClausePattern  = `^(\d+)\.\s*(.*)`
)

type ProcessorConfig struct {
	ArticlePattern string
	ClausePattern  string
}

// Processor splits legal text into one chunk per Article/Clause.
type Processor struct {
	articleRe *regexp.Regexp
	clauseRe  *regexp.Regexp
}

func NewWithConfig(config ProcessorConfig) (Processor, error) {
	if config.ArticlePattern == "" {
		config.ArticlePattern = DefaultArticlePattern
	}
	if config.ClausePattern == "" {
		config.ClausePattern = DefaultClausePattern
	}

	articleRe, err := regexp.Compile(norm.NFC.String(config.ArticlePattern))
	if err != nil {
		return Processor{}, fmt.Errorf("invalid article pattern: %w", err)
	}
	clauseRe, err := regexp.Compile(config.ClausePattern)
	if err != nil {
		return Processor{}, fmt.Errorf("invalid clause pattern: %w", err)
	}

	return Processor{
		articleRe: articleRe,
		clauseRe:  clauseRe,
	}, nil
}

func New() Processor {
	p, _ := NewWithConfig(ProcessorConfig{})
	return p
}

// scan holds the position of the line scan inside the document.
type scan struct {
	source       string
	sourceFile   string
	article      int
	articleTitle string
	hasArticle   bool
	clause       int
	hasClause    bool
	lines        []string
	chunks       []models.Chunk
}

func (s *scan) flush() {
	if !s.hasArticle || !s.hasClause || len(s.lines) == 0 {
		return
	}

	content := strings.TrimSpace(strings.Join(s.lines, "\n"))
	if content == "" {
		return
	}

	title := strings.TrimSpace(s.articleTitle)
	if title == "" {
		title = fmt.Sprintf("Điều %d", s.article)
	}

	s.chunks = append(s.chunks, models.Chunk{
		Content: content,
		Metadata: models.ChunkMetadata{
			Source:        s.source,
			SourceFile:    s.sourceFile,
			ArticleNumber: s.article,
			ArticleTitle:  title,
			ClauseNumber:  s.clause,
		},
	})
}

// Chunk scans paragraphs in order. Text before the first article is dropped;
// text of an article before its first numbered clause becomes clause 0.
func (p *Processor) Chunk(paragraphs []string, filePath, sourceTag string) []models.Chunk {
	s := &scan{
		source:     sourceTag,
		sourceFile: filepath.Base(filePath),
	}

	for _, paragraph := range paragraphs {
		text := cleanText(paragraph)
		if text == "" {
			continue
		}

		if m := p.articleRe.FindStringSubmatch(text); m != nil {
			s.flush()
			s.lines = s.lines[:0]
			s.article, _ = strconv.Atoi(m[1])
			s.articleTitle = m[2]
			s.hasArticle = true
			s.hasClause = false
			continue
		}

		if m := p.clauseRe.FindStringSubmatch(text); m != nil && s.hasArticle {
			s.flush()
			s.lines = s.lines[:0]
			s.clause, _ = strconv.Atoi(m[1])
			s.hasClause = true
			if remainder := strings.TrimSpace(m[2]); remainder != "" {
				s.lines = append(s.lines, remainder)
			}
			continue
		}

		if s.hasArticle {
			if !s.hasClause {
				s.clause = 0
				s.hasClause = true
				s.lines = s.lines[:0]
			}
			s.lines = append(s.lines, text)
		}
	}

	s.flush()
	return s.chunks
}

// AssignIDs gives every chunk an id unique across the whole ingest run.
func AssignIDs(chunks []models.Chunk) {
	for i := range chunks {
		meta := chunks[i].Metadata
		chunks[i].ID = fmt.Sprintf("%s-art%d-clause%d-%d", meta.Source, meta.ArticleNumber, meta.ClauseNumber, i)
	}
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(norm.NFC.String(text))
}
