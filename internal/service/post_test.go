package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/provider"
	"github.com/fsakai/autopost/internal/repository"
)

func newTestPostService() (*PostService, *fakePostRepo) {
	repo := newFakePostRepo()
	return NewPostService(repo, testLogger()), repo
}

func testArtifact() Artifact {
	return Artifact{
		Keywords: []string{"coffee"},
		Info:     "info",
		Image:    provider.Image{URL: "https://example.com/1.jpg", Alt: "coffee", Source: "unsplash"},
		Caption:  "caption",
	}
}

func TestCreateFromArtifact(t *testing.T) {
	svc, _ := newTestPostService()
	target := time.Now().Add(30 * time.Minute)

	post, err := svc.CreateFromArtifact(context.Background(), "user-1", testArtifact(), target)
	if err != nil {
		t.Fatalf("CreateFromArtifact() error = %v", err)
	}
	if post.ID == "" {
		t.Error("post has no ID")
	}
	if post.Status != model.StatusGenerated {
		t.Errorf("Status = %q, want GENERATED", post.Status)
	}
	if !post.TargetTime.Equal(target) {
		t.Errorf("TargetTime = %v, want %v", post.TargetTime, target)
	}
	if post.Image.Source != "unsplash" {
		t.Errorf("Image.Source = %q", post.Image.Source)
	}
}

func TestCreateFromArtifact_MissingUser(t *testing.T) {
	svc, _ := newTestPostService()

	_, err := svc.CreateFromArtifact(context.Background(), "", testArtifact(), time.Now())
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCreateFromArtifact_ZeroTargetTime(t *testing.T) {
	svc, _ := newTestPostService()

	_, err := svc.CreateFromArtifact(context.Background(), "user-1", testArtifact(), time.Time{})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestPostGet_WrongOwner(t *testing.T) {
	svc, _ := newTestPostService()

	post, _ := svc.CreateFromArtifact(context.Background(), "user-1", testArtifact(), time.Now().Add(time.Hour))

	_, err := svc.Get(context.Background(), "user-2", post.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListRecent_ClampsLimit(t *testing.T) {
	svc, _ := newTestPostService()

	for i := 0; i < 25; i++ {
		svc.CreateFromArtifact(context.Background(), "user-1", testArtifact(), time.Now().Add(time.Hour))
	}

	// limit 0 falls back to the default
	posts, err := svc.ListRecent(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(posts) != DefaultPostListLimit {
		t.Errorf("got %d posts, want default limit %d", len(posts), DefaultPostListLimit)
	}
}

// UpdateFields edits content only: absent fields stay, status is never
// touched, and editing remains legal on terminal posts.
func TestUpdateFields_PartialUpdate(t *testing.T) {
	svc, _ := newTestPostService()

	post, _ := svc.CreateFromArtifact(context.Background(), "user-1", testArtifact(), time.Now().Add(time.Hour))

	caption := "edited caption"
	updated, err := svc.UpdateFields(context.Background(), "user-1", post.ID, repository.PostUpdate{
		Caption: &caption,
	})
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	if updated.Caption != "edited caption" {
		t.Errorf("Caption = %q", updated.Caption)
	}
	if updated.Info != "info" {
		t.Errorf("Info = %q, absent field should be unchanged", updated.Info)
	}
	if updated.Status != model.StatusGenerated {
		t.Errorf("Status = %q, editing must not change status", updated.Status)
	}
}

func TestUpdateFields_AllowedOnPostedPost(t *testing.T) {
	svc, repo := newTestPostService()

	post, _ := svc.CreateFromArtifact(context.Background(), "user-1", testArtifact(), time.Now().Add(time.Hour))
	err := repo.Transition(context.Background(), post.ID, model.StatusGenerated, model.StatusPosted, repository.TransitionExtra{})
	if err != nil {
		t.Fatalf("setup: Transition() error = %v", err)
	}

	caption := "correction"
	updated, err := svc.UpdateFields(context.Background(), "user-1", post.ID, repository.PostUpdate{Caption: &caption})
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	if updated.Status != model.StatusPosted {
		t.Errorf("Status = %q, want POSTED", updated.Status)
	}
	if updated.Caption != "correction" {
		t.Errorf("Caption = %q", updated.Caption)
	}
}

func TestUpdateFields_EmptyID(t *testing.T) {
	svc, _ := newTestPostService()

	_, err := svc.UpdateFields(context.Background(), "user-1", "  ", repository.PostUpdate{})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}
