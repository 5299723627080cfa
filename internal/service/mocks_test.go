package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/provider"
	"github.com/fsakai/autopost/internal/repository"
)

// =========================================================================
// SHARED FAKES
// =========================================================================
//
// Hand-written in-memory fakes for the repository and provider interfaces.
// Each stores copies, never the caller's pointers, so tests can't interfere
// with each other through shared state. The post fake reproduces the store's
// compare-and-set Transition contract under a mutex, which is what the
// dispatcher concurrency tests exercise.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- posts ---

type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[string]*model.GeneratedPost
	nextID int
}

var _ repository.PostRepository = (*fakePostRepo)(nil)

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.GeneratedPost)}
}

func (f *fakePostRepo) Create(_ context.Context, post *model.GeneratedPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	post.Status = model.StatusGenerated
	post.CreatedAt = time.Now()
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id string) (*model.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	result := *p
	return &result, nil
}

func (f *fakePostRepo) GetByUser(_ context.Context, userID, id string) (*model.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.UserID != userID {
		return nil, apperror.NotFound("post", id)
	}
	result := *p
	return &result, nil
}

func (f *fakePostRepo) ListRecent(_ context.Context, userID string, opts repository.ListOptions) ([]model.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]model.GeneratedPost, 0)
	for _, p := range f.posts {
		if p.UserID == userID {
			result = append(result, *p)
		}
	}
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (f *fakePostRepo) ListDue(_ context.Context, from, to time.Time) ([]model.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]model.GeneratedPost, 0)
	for _, p := range f.posts {
		if p.Status != model.StatusGenerated {
			continue
		}
		if p.TargetTime.Before(from) || p.TargetTime.After(to) {
			continue
		}
		result = append(result, *p)
	}
	return result, nil
}

func (f *fakePostRepo) UpdateFields(_ context.Context, userID, id string, update repository.PostUpdate) (*model.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.UserID != userID {
		return nil, apperror.NotFound("post", id)
	}
	if update.Info != nil {
		p.Info = *update.Info
	}
	if update.Caption != nil {
		p.Caption = *update.Caption
	}
	if update.ImageURL != nil {
		p.Image.URL = *update.ImageURL
	}
	if update.ImageAlt != nil {
		p.Image.Alt = *update.ImageAlt
	}
	result := *p
	return &result, nil
}

// Transition mirrors the sqlite implementation's compare-and-set: the
// status only changes if it still equals from, and a loser gets
// ErrInvalidTransition.
func (f *fakePostRepo) Transition(_ context.Context, id string, from, to model.PostStatus, extra repository.TransitionExtra) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return apperror.NotFound("post", id)
	}
	if p.Status != from {
		return apperror.InvalidTransition(string(p.Status), string(to))
	}
	p.Status = to
	p.InstagramPostID = extra.InstagramPostID
	p.ErrorMessage = extra.ErrorMessage
	p.PostedAt = extra.PostedAt
	return nil
}

// --- settings ---

type fakeSettingsRepo struct {
	settings map[string]*model.Settings
	listErr  error
}

var _ repository.SettingsRepository = (*fakeSettingsRepo)(nil)

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[string]*model.Settings)}
}

func (f *fakeSettingsRepo) Get(_ context.Context, userID string) (*model.Settings, error) {
	s, ok := f.settings[userID]
	if !ok {
		return nil, apperror.NotFound("settings", userID)
	}
	result := *s
	return &result, nil
}

func (f *fakeSettingsRepo) Put(_ context.Context, settings *model.Settings) error {
	stored := *settings
	f.settings[settings.UserID] = &stored
	return nil
}

func (f *fakeSettingsRepo) ListAll(_ context.Context) ([]model.Settings, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	result := make([]model.Settings, 0, len(f.settings))
	for _, s := range f.settings {
		result = append(result, *s)
	}
	return result, nil
}

// --- accounts ---

type fakeAccountRepo struct {
	accounts map[string]*model.InstagramAccount
	getErr   error
}

var _ repository.AccountRepository = (*fakeAccountRepo)(nil)

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*model.InstagramAccount)}
}

func (f *fakeAccountRepo) Get(_ context.Context, userID string) (*model.InstagramAccount, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.accounts[userID]
	if !ok {
		return nil, apperror.NotFound("instagram account", userID)
	}
	result := *a
	return &result, nil
}

func (f *fakeAccountRepo) Upsert(_ context.Context, account *model.InstagramAccount) error {
	stored := *account
	stored.ConnectedAt = time.Now()
	stored.LastRefreshed = time.Now()
	f.accounts[account.UserID] = &stored
	return nil
}

// --- users ---

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

// --- providers ---

type stubInfoProvider struct {
	text string
	err  error
}

func (s *stubInfoProvider) FetchInfo(_ context.Context, _ []string) (string, error) {
	return s.text, s.err
}

type stubImageProvider struct {
	name     string
	image    *provider.Image
	err      error
	gotQuery string
}

func (s *stubImageProvider) Name() string { return s.name }

func (s *stubImageProvider) SearchImage(_ context.Context, query string) (*provider.Image, error) {
	s.gotQuery = query
	if s.err != nil {
		return nil, s.err
	}
	return s.image, nil
}

type stubCaptionProvider struct {
	text string
	err  error
}

func (s *stubCaptionProvider) FetchCaption(_ context.Context, _ []string, _, _ string) (string, error) {
	return s.text, s.err
}

// countingPublisher records how many external publish calls were issued.
// The delay widens the race window in concurrency tests.
type countingPublisher struct {
	mu    sync.Mutex
	calls int
	id    string
	err   error
	delay time.Duration
}

var _ provider.PublishProvider = (*countingPublisher)(nil)

func (p *countingPublisher) Publish(_ context.Context, _ *model.InstagramAccount, _, _ string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return "", p.err
	}
	return p.id, nil
}

func (p *countingPublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// --- notifier ---

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, _ *model.User, _ *model.GeneratedPost) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.err
}
