package unsplash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
)

const apiBase = "https://api.unsplash.com"

var ErrNoResult = errors.New("no matching photo")

// Client is a thin wrapper over the Unsplash search API used to auto-fill
// event imagery when an exhibitor uploads nothing. Calls are bounded by the
// HTTP client timeout; callers treat any failure as "no image".
type Client struct {
	accessKey string
	http      *http.Client
}

func NewClient(accessKey string) *Client {
	return &Client{
		accessKey: accessKey,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Enabled() bool { return c.accessKey != "" }

type SearchOptions struct {
	Query       string `url:"query"`
	PerPage     int    `url:"per_page"`
	Orientation string `url:"orientation,omitempty"`
}

type Photo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	URLRegular  string `json:"url_regular"`
	URLSmall    string `json:"url_small"`
}

type searchResponse struct {
	Results []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		URLs        struct {
			Regular string `json:"regular"`
			Small   string `json:"small"`
		} `json:"urls"`
	} `json:"results"`
}

// SearchEventImage returns the best landscape photo for an event, built from
// its name and tags.
func (c *Client) SearchEventImage(ctx context.Context, eventName string, tags []string) (*Photo, error) {
	terms := append([]string{eventName, "exhibition"}, tags...)
	return c.Search(ctx, SearchOptions{
		Query:       strings.Join(terms, " "),
		PerPage:     1,
		Orientation: "landscape",
	})
}

func (c *Client) Search(ctx context.Context, opts SearchOptions) (*Photo, error) {
	if !c.Enabled() {
		return nil, errors.New("unsplash disabled (missing UNSPLASH_ACCESS_KEY)")
	}

	qs, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search options: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"/search/photos?"+qs.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unsplash request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unsplash error: status=%d", res.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(out.Results) == 0 {
		return nil, ErrNoResult
	}

	r := out.Results[0]
	return &Photo{
		ID:          r.ID,
		Description: r.Description,
		URLRegular:  r.URLs.Regular,
		URLSmall:    r.URLs.Small,
	}, nil
}
