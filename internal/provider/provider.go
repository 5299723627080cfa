// Package provider defines the capability interfaces the pipeline depends
// on: information retrieval, image search, caption generation, and
// publishing. Each is independently substitutable and independently
// failable; concrete implementations live in subpackages and are injected
// at the composition root.
package provider

import (
	"context"
	"errors"

	"github.com/fsakai/autopost/internal/model"
)

// ErrNoImage is returned by an ImageProvider when the search produced no
// usable result. The assembler treats it like any other miss and falls
// through to the next provider in the chain.
var ErrNoImage = errors.New("no image found")

// Image is one search result with attribution.
type Image struct {
	URL          string
	Alt          string
	Source       string
	Photographer string
}

// DefaultImage is substituted when every image provider misses or errors.
// Exhausting the chain is content degradation, not a pipeline failure.
var DefaultImage = Image{
	URL:          "https://images.unsplash.com/photo-1611162617213-7d7a39e9b1d7?w=800&h=600&fit=crop",
	Alt:          "デフォルト画像",
	Source:       "default",
	Photographer: "Default",
}

// InfoProvider synthesizes a short brief about the given keywords.
// Failures are non-fatal to the pipeline: the assembler substitutes a
// placeholder string.
type InfoProvider interface {
	FetchInfo(ctx context.Context, keywords []string) (string, error)
}

// ImageProvider searches for a single landscape photo matching the query.
// Implementations return ErrNoImage for an empty result set.
type ImageProvider interface {
	Name() string
	SearchImage(ctx context.Context, query string) (*Image, error)
}

// CaptionProvider writes the post caption from keywords, the generated
// info text, and the user's caption instructions. Same degradation
// contract as InfoProvider.
type CaptionProvider interface {
	FetchCaption(ctx context.Context, keywords []string, info, instructions string) (string, error)
}

// PublishProvider pushes an image + caption to the user's linked account
// and returns the external post ID. A failure here is terminal for that
// publish attempt; the dispatcher records it on the post.
type PublishProvider interface {
	Publish(ctx context.Context, account *model.InstagramAccount, imageURL, caption string) (string, error)
}
