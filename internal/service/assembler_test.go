package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fsakai/autopost/internal/provider"
)

func newTestAssembler(info *stubInfoProvider, images []provider.ImageProvider, captions *stubCaptionProvider) *Assembler {
	return NewAssembler(info, images, captions, time.Second, testLogger())
}

func TestAssemble_Success(t *testing.T) {
	img := &stubImageProvider{
		name:  "unsplash",
		image: &provider.Image{URL: "https://example.com/1.jpg", Alt: "coffee", Source: "unsplash", Photographer: "Ann"},
	}
	a := newTestAssembler(
		&stubInfoProvider{text: "コーヒーの豆知識"},
		[]provider.ImageProvider{img},
		&stubCaptionProvider{text: "今日の一杯 ☕"},
	)

	artifact := a.Assemble(context.Background(), []string{"coffee", "tokyo"}, "", "")

	if artifact.Info != "コーヒーの豆知識" {
		t.Errorf("Info = %q", artifact.Info)
	}
	if artifact.Caption != "今日の一杯 ☕" {
		t.Errorf("Caption = %q", artifact.Caption)
	}
	if artifact.Image.URL != "https://example.com/1.jpg" {
		t.Errorf("Image.URL = %q", artifact.Image.URL)
	}
	if len(artifact.Keywords) != 2 {
		t.Errorf("Keywords = %v, want the input snapshot", artifact.Keywords)
	}
}

// TestAssemble_AllProvidersDown is the degradation guarantee: with every
// provider failing, Assemble still returns a fully populated artifact.
func TestAssemble_AllProvidersDown(t *testing.T) {
	a := newTestAssembler(
		&stubInfoProvider{err: errors.New("api down")},
		[]provider.ImageProvider{&stubImageProvider{name: "unsplash", err: errors.New("api down")}},
		&stubCaptionProvider{err: errors.New("api down")},
	)

	artifact := a.Assemble(context.Background(), []string{"coffee"}, "", "")

	if artifact.Info != infoFailedText {
		t.Errorf("Info = %q, want placeholder %q", artifact.Info, infoFailedText)
	}
	if artifact.Caption != captionFailedText {
		t.Errorf("Caption = %q, want placeholder %q", artifact.Caption, captionFailedText)
	}
	if artifact.Image != provider.DefaultImage {
		t.Errorf("Image = %+v, want the default image", artifact.Image)
	}
}

// TestAssemble_ImageFallback checks the chain: first provider misses,
// second provider's result wins.
func TestAssemble_ImageFallback(t *testing.T) {
	primary := &stubImageProvider{name: "unsplash", err: provider.ErrNoImage}
	secondary := &stubImageProvider{
		name:  "pexels",
		image: &provider.Image{URL: "https://example.com/2.jpg", Source: "pexels"},
	}
	a := newTestAssembler(
		&stubInfoProvider{text: "info"},
		[]provider.ImageProvider{primary, secondary},
		&stubCaptionProvider{text: "caption"},
	)

	artifact := a.Assemble(context.Background(), []string{"coffee"}, "", "")

	if artifact.Image.Source != "pexels" {
		t.Errorf("Image.Source = %q, want fallback provider", artifact.Image.Source)
	}
	if secondary.gotQuery == "" {
		t.Error("fallback provider was never queried")
	}
}

// When the provider's photo carries no alt text, the keywords joined
// with ", " stand in. The query must not leak into the alt: it carries
// style and info words.
func TestAssemble_AltFallsBackToKeywords(t *testing.T) {
	img := &stubImageProvider{
		name:  "unsplash",
		image: &provider.Image{URL: "https://example.com/1.jpg", Source: "unsplash"},
	}
	a := newTestAssembler(
		&stubInfoProvider{text: "some info text"},
		[]provider.ImageProvider{img},
		&stubCaptionProvider{text: "caption"},
	)

	artifact := a.Assemble(context.Background(), []string{"coffee", "tokyo"}, "sunset mood", "")

	if artifact.Image.Alt != "coffee, tokyo" {
		t.Errorf("Image.Alt = %q, want the joined keywords", artifact.Image.Alt)
	}
}

func TestAssemble_ProviderAltPreserved(t *testing.T) {
	img := &stubImageProvider{
		name:  "unsplash",
		image: &provider.Image{URL: "https://example.com/1.jpg", Alt: "a latte on a table", Source: "unsplash"},
	}
	a := newTestAssembler(
		&stubInfoProvider{text: "info"},
		[]provider.ImageProvider{img},
		&stubCaptionProvider{text: "caption"},
	)

	artifact := a.Assemble(context.Background(), []string{"coffee"}, "", "")

	if artifact.Image.Alt != "a latte on a table" {
		t.Errorf("Image.Alt = %q, want the provider's alt", artifact.Image.Alt)
	}
}

func TestAssemble_FirstImageProviderWins(t *testing.T) {
	primary := &stubImageProvider{
		name:  "unsplash",
		image: &provider.Image{URL: "https://example.com/1.jpg", Source: "unsplash"},
	}
	secondary := &stubImageProvider{name: "pexels", image: &provider.Image{Source: "pexels"}}
	a := newTestAssembler(
		&stubInfoProvider{text: "info"},
		[]provider.ImageProvider{primary, secondary},
		&stubCaptionProvider{text: "caption"},
	)

	artifact := a.Assemble(context.Background(), []string{"coffee"}, "", "")

	if artifact.Image.Source != "unsplash" {
		t.Errorf("Image.Source = %q, want first provider", artifact.Image.Source)
	}
	if secondary.gotQuery != "" {
		t.Error("second provider should not be queried when the first hits")
	}
}

// =========================================================================
// IMAGE QUERY CONSTRUCTION
// =========================================================================

func TestBuildImageQuery_WithStyle(t *testing.T) {
	got := buildImageQuery([]string{"coffee", "tokyo"}, "sunset", "long info text here")
	want := "sunset coffee tokyo"
	if got != want {
		t.Errorf("buildImageQuery() = %q, want %q", got, want)
	}
}

func TestBuildImageQuery_WithoutStyle(t *testing.T) {
	// No style: keywords plus the first five words of the info text.
	got := buildImageQuery([]string{"coffee"}, "", "one two three four five six seven")
	want := "coffee one two three four five"
	if got != want {
		t.Errorf("buildImageQuery() = %q, want %q", got, want)
	}
}

func TestBuildImageQuery_ShortInfo(t *testing.T) {
	got := buildImageQuery([]string{"coffee"}, "", "just two")
	want := "coffee just two"
	if got != want {
		t.Errorf("buildImageQuery() = %q, want %q", got, want)
	}
}

func TestBuildImageQuery_EmptyInfo(t *testing.T) {
	got := buildImageQuery([]string{"coffee", "tokyo"}, "", "")
	want := "coffee tokyo"
	if got != want {
		t.Errorf("buildImageQuery() = %q, want %q", got, want)
	}
}
