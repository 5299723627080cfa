// Package service contains the business logic layer: content assembly,
// schedule matching, the post lifecycle, and publication dispatch.
// Services receive repository and provider interfaces, never concrete
// implementations, so every external dependency can be substituted in
// tests.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fsakai/autopost/internal/provider"
)

// Placeholders substituted when a generation step fails outright. These
// keep the artifact fully populated so the pipeline never aborts.
const (
	infoFailedText    = "情報取得に失敗しました。"
	captionFailedText = "キャプション生成に失敗しました。"
)

// infoQueryWords is how many leading words of the info text are folded
// into the image query when the user gave no style instructions. This
// ties the image to the generated content in the absence of an explicit
// visual direction.
const infoQueryWords = 5

// Artifact is the in-memory bundle produced by one assembly run, ready to
// be persisted as a GeneratedPost.
type Artifact struct {
	Keywords []string
	Info     string
	Image    provider.Image
	Caption  string
}

// Assembler orchestrates the three generation steps — info, image,
// caption — for one set of keywords and instructions.
//
// Every step degrades locally: a failed info or caption call yields a
// placeholder string, and an exhausted image chain yields the fixed
// default image. Assemble therefore always returns a complete artifact,
// even with every provider down. No step is retried within a single call.
type Assembler struct {
	info     provider.InfoProvider
	images   []provider.ImageProvider // tried in order, first success wins
	captions provider.CaptionProvider
	timeout  time.Duration // per provider call
	logger   *slog.Logger
}

// NewAssembler creates an Assembler. The image providers are tried in the
// order given. stepTimeout bounds each individual provider call; zero
// defaults to 30 seconds.
func NewAssembler(info provider.InfoProvider, images []provider.ImageProvider,
	captions provider.CaptionProvider, stepTimeout time.Duration, logger *slog.Logger) *Assembler {
	if stepTimeout <= 0 {
		stepTimeout = 30 * time.Second
	}
	return &Assembler{
		info:     info,
		images:   images,
		captions: captions,
		timeout:  stepTimeout,
		logger:   logger,
	}
}

// Assemble runs info → image → caption and returns the populated
// artifact. It never returns an error: provider failures are absorbed as
// content degradation.
func (a *Assembler) Assemble(ctx context.Context, keywords []string, styleInstructions, captionInstructions string) Artifact {
	info := a.fetchInfo(ctx, keywords)
	image := a.searchImage(ctx, buildImageQuery(keywords, styleInstructions, info))
	if image.Alt == "" {
		// Providers pass the API's alt text through untouched; when the
		// API has none, the keywords stand in.
		image.Alt = strings.Join(keywords, ", ")
	}
	caption := a.fetchCaption(ctx, keywords, info, captionInstructions)

	return Artifact{
		Keywords: keywords,
		Info:     info,
		Image:    image,
		Caption:  caption,
	}
}

func (a *Assembler) fetchInfo(ctx context.Context, keywords []string) string {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	info, err := a.info.FetchInfo(ctx, keywords)
	if err != nil {
		a.logger.Warn("info step degraded to placeholder",
			slog.String("error", err.Error()))
		return infoFailedText
	}
	return info
}

// searchImage walks the provider chain; the first hit wins. Misses and
// errors are treated alike — move on to the next provider.
func (a *Assembler) searchImage(ctx context.Context, query string) provider.Image {
	for _, p := range a.images {
		stepCtx, cancel := context.WithTimeout(ctx, a.timeout)
		img, err := p.SearchImage(stepCtx, query)
		cancel()

		if err != nil {
			a.logger.Warn("image provider missed",
				slog.String("provider", p.Name()),
				slog.String("error", err.Error()))
			continue
		}
		return *img
	}

	a.logger.Warn("image chain exhausted, using default image",
		slog.String("query", query))
	return provider.DefaultImage
}

func (a *Assembler) fetchCaption(ctx context.Context, keywords []string, info, instructions string) string {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	caption, err := a.captions.FetchCaption(ctx, keywords, info, instructions)
	if err != nil {
		a.logger.Warn("caption step degraded to placeholder",
			slog.String("error", err.Error()))
		return captionFailedText
	}
	return caption
}

// buildImageQuery combines the style instructions with the keywords, or —
// when no style is given — the keywords with the first few words of the
// info text.
func buildImageQuery(keywords []string, styleInstructions, info string) string {
	keywordText := strings.Join(keywords, " ")
	if styleInstructions != "" {
		return styleInstructions + " " + keywordText
	}

	words := strings.Fields(info)
	if len(words) > infoQueryWords {
		words = words[:infoQueryWords]
	}
	return strings.TrimSpace(keywordText + " " + strings.Join(words, " "))
}
