package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/trafficlaw/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ScraperConfig struct {
	MaxDepth          int     // 0 fetches only the start page
	RateLimit         float64 // requests per second
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	UserAgent         string
	OnProgress        func(url string)
	Logger            *zap.Logger
}

type Scraper struct {
	mu       sync.Mutex // one crawl at a time; visited and baseHost are per crawl
	config   ScraperConfig
	client   *http.Client
	visited  map[string]bool
	limiter  *rate.Limiter
	baseHost string
	logger   *zap.Logger
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.MaxDepth < 0 {
		return nil, fmt.Errorf("max depth cannot be negative")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".html", ".htm", ".aspx", "/", ""}
	}
	if config.UserAgent == "" {
		config.UserAgent = "trafficlaw-ingest/1.0"
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  logger,
	}, nil
}

func New() *Scraper {
	s, _ := NewWithConfig(ScraperConfig{})
	return s
}

func (s *Scraper) shouldProcessURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if parsedURL.Host != s.baseHost {
		return false
	}

	// Check extensions against the last path segment only
	path := strings.ToLower(parsedURL.Path)
	last := path[strings.LastIndex(path, "/")+1:]
	validExt := false
	for _, allowedExt := range s.config.AllowedExtensions {
		switch allowedExt {
		case "/":
			validExt = strings.HasSuffix(path, "/")
		case "":
			validExt = !strings.Contains(last, ".")
		default:
			validExt = strings.HasSuffix(last, allowedExt)
		}
		if validExt {
			break
		}
	}
	if !validExt {
		return false
	}

	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}

	return true
}

func cleanParagraph(content string) string {
	content = strings.Join(strings.Fields(content), " ")

	noisePatterns := []string{
		"Cookie Policy",
		"Accept Cookies",
		"Privacy Policy",
		"Terms of Service",
	}

	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}

func (s *Scraper) mainContent(doc *goquery.Document) *goquery.Selection {
	selectors := []string{
		".content1",
		"#toanvancontent",
		".fulltext",
		"main",
		"article",
		".content",
		"#content",
	}

	for _, selector := range selectors {
		if selected := doc.Find(selector).First(); selected.Length() > 0 {
			return selected
		}
	}

	return doc.Find("body")
}

func (s *Scraper) extractParagraphs(doc *goquery.Document) []string {
	root := s.mainContent(doc)

	var paragraphs []string
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := cleanParagraph(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	// Pages without <p> markup keep one paragraph per line
	if len(paragraphs) == 0 {
		for _, line := range strings.Split(root.Text(), "\n") {
			if text := cleanParagraph(line); text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
	}

	return paragraphs
}

// Scrape fetches startURL and, up to MaxDepth, the same-host pages it links
// to. Pages are returned in crawl order.
func (s *Scraper) Scrape(ctx context.Context, startURL string) ([]models.Page, error) {
	parsedURL, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseHost = parsedURL.Host
	s.visited = make(map[string]bool)

	var pages []models.Page
	if err := s.scrapeRecursive(ctx, startURL, 0, &pages); err != nil {
		return pages, err
	}
	return pages, nil
}

// FetchParagraphs flattens the paragraphs of every scraped page.
func (s *Scraper) FetchParagraphs(ctx context.Context, startURL string) ([]string, error) {
	pages, err := s.Scrape(ctx, startURL)
	if err != nil {
		return nil, err
	}

	var paragraphs []string
	for _, page := range pages {
		s.logger.Debug("fetched page",
			zap.String("url", page.URL),
			zap.String("title", page.Title),
			zap.Int("paragraphs", len(page.Paragraphs)),
			zap.Any("metadata", page.Metadata),
		)
		paragraphs = append(paragraphs, page.Paragraphs...)
	}
	return paragraphs, nil
}

func (s *Scraper) scrapeRecursive(ctx context.Context, urlStr string, depth int, pages *[]models.Page) error {
	if depth > s.config.MaxDepth || s.visited[urlStr] {
		return nil
	}

	if !s.shouldProcessURL(urlStr) {
		return nil
	}

	s.visited[urlStr] = true
	if s.config.OnProgress != nil {
		s.config.OnProgress(urlStr)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return err
	}

	*pages = append(*pages, models.Page{
		URL:        urlStr,
		Title:      strings.TrimSpace(doc.Find("title").Text()),
		Paragraphs: s.extractParagraphs(doc),
		Metadata: map[string]interface{}{
			"depth":        depth,
			"time":         time.Now(),
			"contentType":  resp.Header.Get("Content-Type"),
			"lastModified": resp.Header.Get("Last-Modified"),
		},
	})

	if depth == s.config.MaxDepth {
		return nil
	}

	base, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, _ := selection.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			s.logger.Debug("skipping unparsable link", zap.String("href", href), zap.Error(err))
			return
		}
		resolved := base.ResolveReference(ref)
		resolved.Fragment = ""
		links = append(links, resolved.String())
	})

	for _, link := range links {
		if err := s.scrapeRecursive(ctx, link, depth+1, pages); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("error scraping linked page", zap.String("url", link), zap.Error(err))
		}
	}

	return nil
}
