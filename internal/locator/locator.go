package locator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"station-platform/internal/models"
	"station-platform/pkg/logging"
)

// dateToken is the ddmmyyyy layout embedded in upstream filenames and
// folder names (e.g. AWS_FAULTY_02012024.csv, 02012024/).
const dateToken = "02012006"

// NotFoundError indicates no link or folder on the index matched the
// requested criteria. The orchestrator treats this as skippable.
type NotFoundError struct {
	Criteria string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no resource found for %s", e.Criteria)
}

// ParseError indicates an index entry did not carry a decodable date token.
// This signals schema drift in the source listing and aborts the pipeline
// leg instead of being skipped.
type ParseError struct {
	Entry string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("undecodable date token in %q: %v", e.Entry, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransportError indicates the index page itself could not be fetched.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client locates dated CSV resources on the upstream HTML directory indexes.
type Client struct {
	baseURL      string
	faultBaseURL string
	httpClient   *http.Client
	logger       *logging.StructuredLogger
}

// NewClient creates a locator over the station-status index (baseURL) and
// the fault-report index (faultBaseURL).
func NewClient(baseURL, faultBaseURL string, timeout time.Duration, logger *logging.StructuredLogger) *Client {
	return &Client{
		baseURL:      baseURL,
		faultBaseURL: faultBaseURL,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

type link struct {
	href string
	text string
}

// LocateStationCSV finds the URL of a station type's status CSV for an
// exact date. The matching link must start with "{TYPE}_FAULTY"
// (case-insensitive) and contain the date as ddmmyyyy.
func (c *Client) LocateStationCSV(ctx context.Context, st models.StationType, date time.Time) (string, error) {
	links, err := c.fetchLinks(ctx, c.baseURL)
	if err != nil {
		return "", err
	}

	token := date.Format(dateToken)
	for _, l := range links {
		if !matchesPrefix(l, st) {
			continue
		}
		if strings.Contains(l.href, token) {
			return resolveURL(c.baseURL, l.href)
		}
	}

	return "", &NotFoundError{
		Criteria: fmt.Sprintf("type=%s date=%s", st, date.Format("2006-01-02")),
	}
}

// LocateLatestStationCSV finds the URL of a station type's most recent
// status CSV by decoding the trailing date token of every matching
// filename. A matching filename whose token does not decode is a
// ParseError, not a skip.
func (c *Client) LocateLatestStationCSV(ctx context.Context, st models.StationType) (string, time.Time, error) {
	links, err := c.fetchLinks(ctx, c.baseURL)
	if err != nil {
		return "", time.Time{}, err
	}

	var (
		bestHref string
		bestDate time.Time
		found    bool
	)
	for _, l := range links {
		if !matchesPrefix(l, st) {
			continue
		}
		d, err := trailingDate(l.href)
		if err != nil {
			return "", time.Time{}, &ParseError{Entry: l.href, Err: err}
		}
		if !found || d.After(bestDate) {
			bestHref = l.href
			bestDate = d
			found = true
		}
	}

	if !found {
		return "", time.Time{}, &NotFoundError{Criteria: fmt.Sprintf("type=%s latest", st)}
	}

	resolved, err := resolveURL(c.baseURL, bestHref)
	return resolved, bestDate, err
}

// LocateFaultFolder finds the URL of the fault-report folder for an exact
// date. Folder names on the index are bare ddmmyyyy tokens; entries that do
// not decode (parent links and the like) are ignored.
func (c *Client) LocateFaultFolder(ctx context.Context, date time.Time) (string, error) {
	folders, err := c.faultFolders(ctx)
	if err != nil {
		return "", err
	}

	token := date.Format(dateToken)
	for _, f := range folders {
		if strings.Trim(f.href, "/") == token {
			return resolveURL(c.faultBaseURL, f.href)
		}
	}

	return "", &NotFoundError{
		Criteria: fmt.Sprintf("fault folder date=%s", date.Format("2006-01-02")),
	}
}

// LocateLatestFaultFolder finds the URL of the most recent fault-report
// folder on the index.
func (c *Client) LocateLatestFaultFolder(ctx context.Context) (string, time.Time, error) {
	folders, err := c.faultFolders(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	var (
		bestHref string
		bestDate time.Time
		found    bool
	)
	for _, f := range folders {
		d, err := time.Parse(dateToken, strings.Trim(f.href, "/"))
		if err != nil {
			continue
		}
		if !found || d.After(bestDate) {
			bestHref = f.href
			bestDate = d
			found = true
		}
	}

	if !found {
		return "", time.Time{}, &NotFoundError{Criteria: "latest fault folder"}
	}

	resolved, err := resolveURL(c.faultBaseURL, bestHref)
	return resolved, bestDate, err
}

// ListFaultFiles returns the URLs of every CSV inside a fault-report
// folder, sorted by filename for a deterministic ingest order.
func (c *Client) ListFaultFiles(ctx context.Context, folderURL string) ([]string, error) {
	links, err := c.fetchLinks(ctx, folderURL)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, l := range links {
		if !strings.HasSuffix(strings.ToLower(l.href), ".csv") {
			continue
		}
		resolved, err := resolveURL(folderURL, l.href)
		if err != nil {
			return nil, err
		}
		files = append(files, resolved)
	}

	sort.Strings(files)
	return files, nil
}

func (c *Client) faultFolders(ctx context.Context) ([]link, error) {
	links, err := c.fetchLinks(ctx, c.faultBaseURL)
	if err != nil {
		return nil, err
	}

	var folders []link
	for _, l := range links {
		if strings.HasSuffix(l.href, "/") && strings.Trim(l.href, "/") != ".." {
			folders = append(folders, l)
		}
	}
	return folders, nil
}

// fetchLinks downloads an HTML index page and extracts its anchor links.
func (c *Client) fetchLinks(ctx context.Context, pageURL string) ([]link, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, &ParseError{Entry: pageURL, Err: err}
	}

	var links []link
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					links = append(links, link{href: attr.Val, text: anchorText(n)})
					break
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	c.logger.Debug(ctx, "[LOCATOR_INDEX] Index page listed", logging.Fields{
		"url":        pageURL,
		"link_count": len(links),
	})

	return links, nil
}

func anchorText(n *html.Node) string {
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}

// matchesPrefix reports whether a link belongs to a station type's daily
// report series, matching either the href or the anchor text.
func matchesPrefix(l link, st models.StationType) bool {
	prefix := strings.ToUpper(string(st)) + "_FAULTY"
	name := strings.ToUpper(path.Base(l.href))
	text := strings.ToUpper(l.text)
	return strings.HasPrefix(name, prefix) || strings.HasPrefix(text, prefix)
}

// trailingDate decodes the ddmmyyyy token that ends a report filename,
// e.g. AWS_FAULTY_02012024.csv -> 2024-01-02.
func trailingDate(href string) (time.Time, error) {
	name := path.Base(href)
	name = strings.TrimSuffix(name, path.Ext(name))
	parts := strings.Split(name, "_")
	token := parts[len(parts)-1]
	return time.Parse(dateToken, token)
}

func resolveURL(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	h, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return b.ResolveReference(h).String(), nil
}
