// Package youtube fetches top-level video comments from the YouTube Data API.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/cognicore/commentpulse/pkg/pulse/analytics"
)

const (
	// DefaultBaseURL is the YouTube Data API v3 root.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	// DefaultMaxComments matches what the browser popup analyzes per video.
	DefaultMaxComments = 500

	pageSize = 100
)

var watchURL = regexp.MustCompile(`^https://(?:www\.)?youtube\.com/watch\?v=([\w-]{11})`)

// ExtractVideoID returns the video ID of a youtube.com watch URL.
func ExtractVideoID(rawURL string) (string, bool) {
	m := watchURL.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Client is a minimal commentThreads client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client using apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type threadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet commentSnippet `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
	Error         *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type commentSnippet struct {
	TextOriginal    string `json:"textOriginal"`
	TextDisplay     string `json:"textDisplay"`
	PublishedAt     string `json:"publishedAt"`
	AuthorChannelID *struct {
		Value string `json:"value"`
	} `json:"authorChannelId"`
}

func (s commentSnippet) comment() analytics.Comment {
	text := s.TextOriginal
	if text == "" {
		text = PlainText(s.TextDisplay)
	}
	c := analytics.Comment{Text: text, Timestamp: s.PublishedAt}
	if s.AuthorChannelID != nil {
		c.AuthorID = s.AuthorChannelID.Value
	}
	return c
}

// FetchComments pages through a video's comment threads until max comments
// are collected or no pages remain. max <= 0 means DefaultMaxComments. A
// failure after the first page returns what was collected so far.
func (c *Client) FetchComments(ctx context.Context, videoID string, max int) ([]analytics.Comment, error) {
	if videoID == "" {
		return nil, fmt.Errorf("youtube: empty video id")
	}
	if max <= 0 {
		max = DefaultMaxComments
	}

	var out []analytics.Comment
	pageToken := ""
	for len(out) < max {
		page, err := c.fetchPage(ctx, videoID, pageToken)
		if err != nil {
			if len(out) == 0 {
				return nil, err
			}
			c.logger.Warn().Err(err).Int("collected", len(out)).Msg("stopping comment pagination")
			break
		}
		for _, it := range page.Items {
			out = append(out, it.Snippet.TopLevelComment.Snippet.comment())
		}
		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, videoID, pageToken string) (*threadsResponse, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("videoId", videoID)
	q.Set("maxResults", fmt.Sprint(pageSize))
	q.Set("textFormat", "plainText")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/commentThreads?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var page threadsResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("youtube: decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if page.Error != nil && page.Error.Message != "" {
			return nil, fmt.Errorf("youtube: HTTP %d: %s", resp.StatusCode, page.Error.Message)
		}
		return nil, fmt.Errorf("youtube: HTTP %d", resp.StatusCode)
	}
	return &page, nil
}

// PlainText converts an HTML comment body to text. Line breaks become
// newlines and entities are decoded; unparsable input is returned as is.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
