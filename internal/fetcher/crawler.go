package fetcher

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"newsqa/internal/config"
	"newsqa/internal/domain"
	"newsqa/internal/logging"
)

const maxPageBytes = 5 << 20

// Source describes one news site and how to extract articles from it.
type Source struct {
	Name            string
	BaseURL         string
	MaxDepth        int
	MaxPages        int
	Exclude         []string
	TitleSelector   string
	ContentSelector string
	Timeout         time.Duration
	UserAgent       string
}

// SourceFromConfig converts a config entry into a Source.
func SourceFromConfig(c config.SourceConfig) Source {
	return Source{
		Name:            c.Name,
		BaseURL:         c.BaseURL,
		MaxDepth:        c.MaxDepth,
		MaxPages:        c.MaxPages,
		Exclude:         c.Exclude,
		TitleSelector:   c.TitleSelector,
		ContentSelector: c.ContentSelector,
		Timeout:         time.Duration(c.TimeoutSecs) * time.Second,
		UserAgent:       c.UserAgent,
	}
}

// Crawler walks a news site breadth-first and extracts one document per
// article page.
type Crawler struct {
	source Source
	client *http.Client
	logger *zap.Logger
}

// NewCrawler creates a crawler for the given source. A nil client gets a
// default one honouring the source timeout.
func NewCrawler(source Source, client *http.Client, logger *zap.Logger) *Crawler {
	if source.MaxDepth <= 0 {
		source.MaxDepth = 2
	}
	if source.MaxPages <= 0 {
		source.MaxPages = 60
	}
	if source.TitleSelector == "" {
		source.TitleSelector = "h1"
	}
	if source.ContentSelector == "" {
		source.ContentSelector = "article p"
	}
	if client == nil {
		timeout := source.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	return &Crawler{
		source: source,
		client: client,
		logger: logging.OrNop(logger).With(zap.String("source", source.Name)),
	}
}

// Name returns the source name.
func (c *Crawler) Name() string { return c.source.Name }

// Fetch crawls the source. A network or parse error, or a failing base page,
// discards the whole crawl and returns an empty slice. Broken child pages are
// skipped.
func (c *Crawler) Fetch(ctx context.Context) []domain.Document {
	docs, err := c.crawl(ctx)
	if err != nil {
		c.logger.Warn("crawl failed, source skipped", zap.String("base_url", c.source.BaseURL), zap.Error(err))
		return []domain.Document{}
	}
	c.logger.Info("crawl finished", zap.Int("documents", len(docs)))
	return docs
}

type queued struct {
	url   *url.URL
	depth int
}

func (c *Crawler) crawl(ctx context.Context) ([]domain.Document, error) {
	base, err := url.Parse(c.source.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	base.Fragment = ""

	visited := map[string]struct{}{base.String(): {}}
	queue := []queued{{url: base, depth: 0}}
	var docs []domain.Document

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := queue[0]
		queue = queue[1:]

		page, ok, err := c.fetchPage(ctx, item.url, item.depth == 0)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", item.url, err)
		}
		if !ok {
			continue
		}
		if doc, ok := c.extract(item.url, page); ok {
			docs = append(docs, doc)
		}
		if item.depth >= c.source.MaxDepth {
			continue
		}
		for _, link := range c.links(base, item.url, page) {
			key := link.String()
			if _, seen := visited[key]; seen {
				continue
			}
			if len(visited) >= c.source.MaxPages {
				break
			}
			visited[key] = struct{}{}
			queue = append(queue, queued{url: link, depth: item.depth + 1})
		}
	}
	return docs, nil
}

// fetchPage returns ok=false for responses that are not HTML and for
// non-2xx responses below the base page. A non-2xx base page is an error.
func (c *Crawler) fetchPage(ctx context.Context, u *url.URL, root bool) (*goquery.Document, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	if c.source.UserAgent != "" {
		req.Header.Set("User-Agent", c.source.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if root {
			return nil, false, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		c.logger.Debug("skipping page", zap.String("url", u.String()), zap.Int("status", resp.StatusCode))
		return nil, false, nil
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		c.logger.Debug("skipping non-html page", zap.String("url", u.String()))
		return nil, false, nil
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, false, fmt.Errorf("parsing html: %w", err)
	}
	return doc, true, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func (c *Crawler) extract(u *url.URL, page *goquery.Document) (domain.Document, bool) {
	title := strings.TrimSpace(page.Find(c.source.TitleSelector).First().Text())
	var paragraphs []string
	page.Find(c.source.ContentSelector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return domain.Document{}, false
	}
	return domain.Document{
		ID:     hashString(u.String()),
		Text:   FormatArticle(title, strings.Join(paragraphs, "\n")),
		Source: c.source.Name,
		URL:    u.String(),
	}, true
}

// FormatArticle renders the document text stored in the index.
func FormatArticle(title, content string) string {
	return "TÍTULO: " + title + "\n\nCONTENIDO: " + content
}

// links returns crawlable links on page, restricted to the base host.
func (c *Crawler) links(base, pageURL *url.URL, page *goquery.Document) []*url.URL {
	var out []*url.URL
	page.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := pageURL.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Host, base.Host) {
			return
		}
		if c.excluded(abs) {
			return
		}
		out = append(out, abs)
	})
	return out
}

func (c *Crawler) excluded(u *url.URL) bool {
	for _, pattern := range c.source.Exclude {
		if pattern != "" && strings.Contains(u.Path, pattern) {
			return true
		}
	}
	return false
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
