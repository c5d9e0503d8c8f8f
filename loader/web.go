package loader

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"collegeseeker/types"

	"github.com/PuerkitoBio/goquery"
)

// Page is one fetched web page reduced to its text.
type Page struct {
	URL   string
	Title string
	Text  string
}

// WebLoader fetches pages and extracts their main text. With MaxDepth > 0 it
// also follows same-host links, never leaving the root's host.
type WebLoader struct {
	client   *http.Client
	MaxDepth int
}

func NewWebLoader(timeout time.Duration, maxDepth int) *WebLoader {
	return &WebLoader{
		client:   &http.Client{Timeout: timeout},
		MaxDepth: maxDepth,
	}
}

func (w *WebLoader) Timeout() time.Duration {
	return w.client.Timeout
}

// Load crawls from rootURL up to MaxDepth and returns the pages that carried
// any text. The root page failing is an error; a dead link below it is not.
func (w *WebLoader) Load(ctx context.Context, rootURL string) ([]Page, error) {
	root, err := url.Parse(rootURL)
	if err != nil || root.Host == "" {
		return nil, types.NewValidationError(map[string]string{"link": "not a valid absolute URL"})
	}

	var pages []Page
	seen := map[string]bool{rootURL: true}
	frontier := []string{rootURL}

	for depth := 0; depth <= w.MaxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, pageURL := range frontier {
			page, links, err := w.fetch(ctx, pageURL)
			if err != nil {
				if pageURL == rootURL {
					return nil, err
				}
				fmt.Printf("[CRAWL] skipping %s: %v\n", pageURL, err)
				continue
			}
			if page.Text != "" {
				pages = append(pages, page)
			}
			for _, link := range links {
				if seen[link] {
					continue
				}
				linkURL, err := url.Parse(link)
				if err != nil || linkURL.Host != root.Host {
					continue
				}
				seen[link] = true
				next = append(next, link)
			}
		}
		frontier = next
	}

	if len(pages) == 0 {
		return nil, types.NewValidationError(map[string]string{"link": "no text extracted from page"})
	}
	return pages, nil
}

func (w *WebLoader) fetch(ctx context.Context, pageURL string) (Page, []string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return Page{}, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return Page{}, nil, types.NewExternalServiceError("web-loader", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, nil, types.NewExternalServiceError("web-loader",
			fmt.Errorf("GET %s: status %d", pageURL, resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Page{}, nil, types.NewExternalServiceError("web-loader",
			fmt.Errorf("parse %s: %w", pageURL, err))
	}

	var links []string
	base, _ := url.Parse(pageURL)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Scheme == "http" || abs.Scheme == "https" {
			links = append(links, abs.String())
		}
	})

	return Page{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  ExtractText(doc),
	}, links, nil
}

var blankLines = regexp.MustCompile(`\n\s*\n+`)

// ExtractText reduces a parsed page to its body text, skipping boilerplate
// elements and collapsing redundant blank lines.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}

	var b strings.Builder
	body.Find("h1, h2, h3, h4, p, li, td, th").Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			b.WriteString(t)
			b.WriteString("\n")
		}
	})

	text := b.String()
	if text == "" {
		text = body.Text()
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}
