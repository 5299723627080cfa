package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsakai/autopost/internal/auth"
	"github.com/fsakai/autopost/internal/handler"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/notify"
	"github.com/fsakai/autopost/internal/provider"
	"github.com/fsakai/autopost/internal/repository/sqlite"
	"github.com/fsakai/autopost/internal/service"
)

// Handler tests run against the real service stack on an in-memory
// database. Only the outbound providers are stubbed.

type stubInfo struct{}

func (stubInfo) FetchInfo(context.Context, []string) (string, error) { return "info text", nil }

type stubImage struct{}

func (stubImage) Name() string { return "stub" }
func (stubImage) SearchImage(context.Context, string) (*provider.Image, error) {
	return &provider.Image{URL: "https://example.com/1.jpg", Source: "stub"}, nil
}

type stubCaption struct{}

func (stubCaption) FetchCaption(context.Context, []string, string, string) (string, error) {
	return "caption text", nil
}

type stubPublisher struct{ id string }

func (s stubPublisher) Publish(context.Context, *model.InstagramAccount, string, string) (string, error) {
	return s.id, nil
}

type fixture struct {
	db       *sqlite.DB
	auth     *handler.AuthHandler
	settings *handler.SettingsHandler
	posts    *handler.PostHandler
	trigger  *handler.TriggerHandler
	pipeline *service.Pipeline
	userID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(4)

	users := db.Users()
	settings := db.Settings()
	accounts := db.Accounts()
	posts := db.Posts()

	authService := service.NewAuthService(users, passwords, tokens, logger)
	settingsService := service.NewSettingsService(settings, logger)
	postService := service.NewPostService(posts, logger)

	assembler := service.NewAssembler(stubInfo{}, []provider.ImageProvider{stubImage{}}, stubCaption{}, time.Second, logger)
	matcher := service.NewMatcher(settings, 30*time.Minute, logger)
	dispatcher := service.NewDispatcher(posts, accounts, stubPublisher{id: "ig-1"}, 30*time.Minute, time.Second, logger)
	pipeline := service.NewPipeline(matcher, assembler, dispatcher, postService, settings, users,
		&notify.LogNotifier{Logger: logger}, logger)

	user, _, err := authService.Signup(context.Background(), "a@example.com", "password123", "Alice")
	require.NoError(t, err)

	return &fixture{
		db:       db,
		auth:     handler.NewAuthHandler(authService, logger),
		settings: handler.NewSettingsHandler(settingsService, logger),
		posts:    handler.NewPostHandler(postService, dispatcher, pipeline, logger),
		trigger:  handler.NewTriggerHandler(pipeline, "cron-secret", logger),
		pipeline: pipeline,
		userID:   user.ID,
	}
}

// request builds an authenticated JSON request the way the middleware
// would hand it to the handler.
func (f *fixture) request(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(auth.ContextWithUserID(req.Context(), f.userID))
}

func TestAuthHandler(t *testing.T) {
	f := newFixture(t)

	t.Run("login sets session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			bytes.NewBufferString(`{"email":"a@example.com","password":"password123"}`))
		rr := httptest.NewRecorder()

		f.auth.HandleLogin(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		cookies := rr.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, "token", cookies[0].Name)
		assert.NotEmpty(t, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.NotContains(t, rr.Body.String(), "password", "hash must never serialize")
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			bytes.NewBufferString(`{"email":"a@example.com","password":"wrongpass123"}`))
		rr := httptest.NewRecorder()

		f.auth.HandleLogin(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("duplicate signup", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
			bytes.NewBufferString(`{"email":"a@example.com","password":"password123"}`))
		rr := httptest.NewRecorder()

		f.auth.HandleSignup(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestSettingsHandler(t *testing.T) {
	f := newFixture(t)

	t.Run("put then get", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.settings.HandlePut(rr, f.request(http.MethodPut, "/api/settings",
			`{"keywords":["coffee"],"schedule":{"月":["09:00"]}}`))
		require.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		f.settings.HandleGet(rr, f.request(http.MethodGet, "/api/settings", ""))
		require.Equal(t, http.StatusOK, rr.Code)

		var got model.Settings
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, []string{"coffee"}, got.Keywords)
		assert.Equal(t, []string{"09:00"}, got.Schedule[model.Monday])
	})

	t.Run("invalid time is a 400", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.settings.HandlePut(rr, f.request(http.MethodPut, "/api/settings",
			`{"keywords":["coffee"],"schedule":{"月":["9am"]}}`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestPostHandler(t *testing.T) {
	f := newFixture(t)

	// Saved settings are a precondition for generation.
	rr := httptest.NewRecorder()
	f.settings.HandlePut(rr, f.request(http.MethodPut, "/api/settings", `{"keywords":["coffee"]}`))
	require.Equal(t, http.StatusOK, rr.Code)

	var created model.GeneratedPost
	t.Run("manual generate", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.posts.HandleGenerate(rr, f.request(http.MethodPost, "/api/posts/generate", `{}`))

		require.Equal(t, http.StatusCreated, rr.Code)
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
		assert.Equal(t, model.StatusGenerated, created.Status)
		assert.Equal(t, "caption text", created.Caption)
	})

	t.Run("confirm reject", func(t *testing.T) {
		req := f.request(http.MethodPost, "/api/posts/"+created.ID+"/confirm", `{"action":"reject"}`)
		req.SetPathValue("id", created.ID)
		rr := httptest.NewRecorder()

		f.posts.HandleConfirm(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got model.GeneratedPost
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, model.StatusRejected, got.Status)
	})

	t.Run("confirm on terminal post is a conflict", func(t *testing.T) {
		req := f.request(http.MethodPost, "/api/posts/"+created.ID+"/confirm", `{"action":"approve"}`)
		req.SetPathValue("id", created.ID)
		rr := httptest.NewRecorder()

		f.posts.HandleConfirm(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("list", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.posts.HandleList(rr, f.request(http.MethodGet, "/api/posts", ""))

		require.Equal(t, http.StatusOK, rr.Code)
		var got []model.GeneratedPost
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Len(t, got, 1)
	})
}

func TestTriggerHandler(t *testing.T) {
	f := newFixture(t)

	t.Run("missing secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/cron/generate", nil)
		rr := httptest.NewRecorder()

		f.trigger.HandleGenerate(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/cron/generate", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rr := httptest.NewRecorder()

		f.trigger.HandleGenerate(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid secret runs the pipeline", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/cron/dispatch", nil)
		req.Header.Set("Authorization", "Bearer cron-secret")
		rr := httptest.NewRecorder()

		f.trigger.HandleDispatch(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "processed")
	})
}
