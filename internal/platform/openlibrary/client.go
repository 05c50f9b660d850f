package openlibrary

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

const (
	DefaultBaseURL  = "https://openlibrary.org"
	coversBaseURL   = "https://covers.openlibrary.org"
	searchFieldList = "key,title,author_name,cover_i,subject"
)

// Fetcher is the retrying GET used for every Open Library call.
type Fetcher interface {
	GetJSON(ctx context.Context, url string, target any) (bool, error)
}

type Client struct {
	fetch   Fetcher
	baseURL string
}

func NewClient(fetch Fetcher, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		fetch:   fetch,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Text is a description field, which Open Library sends either as a plain
// string or as {"type": "/type/text", "value": "..."}.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*t = Text(obj.Value)
	return nil
}

// Edition matches isbn/{isbn}.json
type Edition struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Covers      []int    `json:"covers"`
	Description Text     `json:"description"`
	Subjects    []string `json:"subjects"`
	Works       []Ref    `json:"works"`
}

// Ref is a {"key": ...} link to another record.
type Ref struct {
	Key string `json:"key"`
}

// WorkKey returns the first linked work, e.g. "/works/OL45804W".
func (e *Edition) WorkKey() string {
	for _, w := range e.Works {
		if w.Key != "" {
			return w.Key
		}
	}
	return ""
}

// Work matches works/{key}.json
type Work struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Covers      []int    `json:"covers"`
	Description Text     `json:"description"`
	Subjects    []string `json:"subjects"`
}

// SearchDoc is one hit of search.json restricted to searchFieldList.
type SearchDoc struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	AuthorNames []string `json:"author_name"`
	CoverID     int      `json:"cover_i"`
	Subjects    []string `json:"subject"`
}

// SearchResponse matches search.json
type SearchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []SearchDoc `json:"docs"`
}

// Edition looks up an edition by cleaned ISBN. A nil edition with a nil
// error means Open Library has no such book.
func (c *Client) Edition(ctx context.Context, isbn string) (*Edition, error) {
	if isbn == "" {
		return nil, nil
	}
	u := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, url.PathEscape(isbn))

	var res Edition
	if ok, err := c.fetch.GetJSON(ctx, u, &res); !ok {
		return nil, err
	}
	return &res, nil
}

// Work resolves a work key such as "/works/OL45804W" or "OL45804W".
func (c *Client) Work(ctx context.Context, key string) (*Work, error) {
	key = strings.TrimPrefix(key, "/works/")
	if key == "" {
		return nil, nil
	}
	u := fmt.Sprintf("%s/works/%s.json", c.baseURL, url.PathEscape(key))

	var res Work
	if ok, err := c.fetch.GetJSON(ctx, u, &res); !ok {
		return nil, err
	}
	return &res, nil
}

// Search returns the top-ranked document for a title/author query.
func (c *Client) Search(ctx context.Context, title, author string) (*SearchDoc, error) {
	q := url.Values{}
	if title != "" {
		q.Set("title", title)
	}
	if author != "" {
		q.Set("author", author)
	}
	if len(q) == 0 {
		return nil, nil
	}
	q.Set("limit", "1")
	q.Set("fields", searchFieldList)
	u := c.baseURL + "/search.json?" + q.Encode()

	var res SearchResponse
	ok, err := c.fetch.GetJSON(ctx, u, &res)
	if err != nil {
		return nil, err
	}
	if !ok || len(res.Docs) == 0 {
		return nil, nil
	}
	return &res.Docs[0], nil
}

// CoverURL returns the large cover image for a cover id, or "" for ids
// Open Library uses as placeholders.
func CoverURL(id int) string {
	if id <= 0 {
		return ""
	}
	return fmt.Sprintf("%s/b/id/%d-L.jpg", coversBaseURL, id)
}

// FirstCover returns the URL of the first usable cover id.
func FirstCover(ids []int) string {
	for _, id := range ids {
		if u := CoverURL(id); u != "" {
			return u
		}
	}
	return ""
}
