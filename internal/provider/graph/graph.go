// Package graph implements the publish provider on the Instagram Graph
// API. Publishing is the documented two-step flow: create a media
// container for the image + caption, then publish the container.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/provider"
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

// Client publishes posts through the Graph API on behalf of a linked
// account. The account's own access token authorizes each call.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ provider.PublishProvider = (*Client)(nil)

// New creates a Client. baseURL overrides the Graph endpoint, which the
// tests use to point at a local server; empty means production.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type apiResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Publish creates and publishes a media container, returning the external
// post ID. All failures come back as apperror.ErrPublish so the dispatcher
// can record the reason on the post.
func (c *Client) Publish(ctx context.Context, account *model.InstagramAccount, imageURL, caption string) (string, error) {
	if account.BusinessID == "" {
		return "", apperror.Publish("Instagram Business Account IDが設定されていません")
	}

	containerID, err := c.call(ctx, account.BusinessID+"/media", url.Values{
		"image_url":    {imageURL},
		"caption":      {caption},
		"access_token": {account.AccessToken},
	})
	if err != nil {
		return "", err
	}

	mediaID, err := c.call(ctx, account.BusinessID+"/media_publish", url.Values{
		"creation_id":  {containerID},
		"access_token": {account.AccessToken},
	})
	if err != nil {
		return "", err
	}

	return mediaID, nil
}

func (c *Client) call(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperror.Publish(err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperror.Publish(err.Error())
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", apperror.Publish(fmt.Sprintf("decoding graph response: %v", err))
	}

	if resp.StatusCode != http.StatusOK || body.Error != nil {
		msg := fmt.Sprintf("graph api status %d", resp.StatusCode)
		if body.Error != nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		return "", apperror.Publish(msg)
	}
	if body.ID == "" {
		return "", apperror.Publish("graph api returned no id")
	}

	return body.ID, nil
}
