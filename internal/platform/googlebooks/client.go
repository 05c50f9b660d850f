// Package googlebooks is a thin client for the Google Books volumes API.
package googlebooks

import (
	"context"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://www.googleapis.com"

// Fetcher is the retrying GET used for every Google Books call.
type Fetcher interface {
	GetJSON(ctx context.Context, url string, target any) (bool, error)
}

type Client struct {
	fetch   Fetcher
	baseURL string
	apiKey  string
}

func NewClient(fetch Fetcher, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		fetch:   fetch,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// VolumesResponse matches books/v1/volumes
type VolumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

type VolumeInfo struct {
	Title       string     `json:"title"`
	Authors     []string   `json:"authors"`
	Description string     `json:"description"`
	Categories  []string   `json:"categories"`
	ImageLinks  ImageLinks `json:"imageLinks"`
}

type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

// Cover prefers the regular thumbnail over the small one.
func (l ImageLinks) Cover() string {
	if l.Thumbnail != "" {
		return l.Thumbnail
	}
	return l.SmallThumbnail
}

// ByISBN returns the volume matching a cleaned ISBN, or nil when there is
// none. An error means Google Books could not be reached.
func (c *Client) ByISBN(ctx context.Context, isbn string) (*Volume, error) {
	if isbn == "" {
		return nil, nil
	}
	return c.first(ctx, "isbn:"+isbn)
}

// Search returns the top-ranked volume for title and author tokens.
func (c *Client) Search(ctx context.Context, title, author string) (*Volume, error) {
	var terms []string
	if title != "" {
		terms = append(terms, "intitle:"+title)
	}
	if author != "" {
		terms = append(terms, "inauthor:"+author)
	}
	if len(terms) == 0 {
		return nil, nil
	}
	return c.first(ctx, strings.Join(terms, " "))
}

func (c *Client) first(ctx context.Context, query string) (*Volume, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("maxResults", "1")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u := c.baseURL + "/books/v1/volumes?" + q.Encode()

	var res VolumesResponse
	ok, err := c.fetch.GetJSON(ctx, u, &res)
	if err != nil {
		return nil, err
	}
	if !ok || len(res.Items) == 0 {
		return nil, nil
	}
	return &res.Items[0], nil
}
