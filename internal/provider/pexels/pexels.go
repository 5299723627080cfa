// Package pexels implements image search against the Pexels REST API.
// It is the second provider in the assembler's fallback chain.
package pexels

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

const baseURL = "https://api.pexels.com/v1"

// Client is a minimal Pexels search client.
type Client struct {
	apiKey string
	http   *http.Client
}

var _ provider.ImageProvider = (*Client)(nil)

// New creates a Client with a bounded request timeout.
func New(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return "pexels" }

type searchResponse struct {
	Photos []struct {
		Src struct {
			Medium string `json:"medium"`
		} `json:"src"`
		Alt          string `json:"alt"`
		Photographer string `json:"photographer"`
	} `json:"photos"`
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
		baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, apperror.Provider("pexels", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Provider("pexels", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Provider("pexels", fmt.Errorf("status %d", resp.StatusCode))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperror.Provider("pexels", err)
	}

	if len(body.Photos) == 0 {
		return nil, provider.ErrNoImage
	}

	photo := body.Photos[0]
	return &provider.Image{
		URL:          photo.Src.Medium,
		Alt:          photo.Alt,
		Source:       "pexels",
		Photographer: photo.Photographer,
	}, nil
}
