// Package unsplash implements image search against the Unsplash REST API.
package unsplash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/provider"
)

const baseURL = "https://api.unsplash.com"

// Client is a minimal Unsplash search client. Only the fields the
// pipeline consumes are decoded.
type Client struct {
	accessKey string
	http      *http.Client
}

var _ provider.ImageProvider = (*Client)(nil)

// New creates a Client with a bounded request timeout.
func New(accessKey string) *Client {
	return &Client{
		accessKey: accessKey,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return "unsplash" }

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		AltDescription string `json:"alt_description"`
		User           struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

// SearchImage returns the first landscape photo for query, or ErrNoImage
// when the search comes back empty.
func (c *Client) SearchImage(ctx context.Context, query string) (*provider.Image, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", "1")
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		baseURL+"/search/photos?"+q.Encode(), nil)
	if err != nil {
		return nil, apperror.Provider("unsplash", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Provider("unsplash", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Provider("unsplash", fmt.Errorf("status %d", resp.StatusCode))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperror.Provider("unsplash", err)
	}

	if len(body.Results) == 0 {
		return nil, provider.ErrNoImage
	}

	photo := body.Results[0]
	return &provider.Image{
		URL:          photo.URLs.Regular,
		Alt:          photo.AltDescription,
		Source:       "unsplash",
		Photographer: photo.User.Name,
	}, nil
}
