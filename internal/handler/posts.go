package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fsakai/autopost/internal/auth"
	"github.com/fsakai/autopost/internal/repository"
	"github.com/fsakai/autopost/internal/service"
)

// PostHandler serves the generated-post listings, edits, the confirm
// gate, and the manual generate action.
type PostHandler struct {
	posts      *service.PostService
	dispatcher *service.Dispatcher
	pipeline   *service.Pipeline
	logger     *slog.Logger
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(posts *service.PostService, dispatcher *service.Dispatcher,
	pipeline *service.Pipeline, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		posts:      posts,
		dispatcher: dispatcher,
		pipeline:   pipeline,
		logger:     logger,
	}
}

// HandleList returns the caller's posts, newest first.
//
// HTTP: GET /api/posts?limit=20
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}

	posts, err := h.posts.ListRecent(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleGet returns one post owned by the caller.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	post, err := h.posts.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

type postUpdateRequest struct {
	Info     *string `json:"info"`
	Caption  *string `json:"caption"`
	ImageURL *string `json:"imageUrl"`
	ImageAlt *string `json:"imageAlt"`
}

// HandleUpdate edits a post's content fields. Absent fields are left
// unchanged; status is never touched here.
//
// HTTP: PUT /api/posts/{id}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req postUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	post, err := h.posts.UpdateFields(r.Context(), userID, r.PathValue("id"), repository.PostUpdate{
		Info:     req.Info,
		Caption:  req.Caption,
		ImageURL: req.ImageURL,
		ImageAlt: req.ImageAlt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

type confirmRequest struct {
	Action string `json:"action"` // "approve" or "reject"
}

// HandleConfirm applies the approve/reject decision. Approving publishes
// immediately; the response carries the post's resulting state.
//
// HTTP: POST /api/posts/{id}/confirm
func (h *PostHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	post, err := h.dispatcher.Confirm(r.Context(), userID, r.PathValue("id"), service.Decision(req.Action))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

type generateRequest struct {
	TargetTime time.Time `json:"targetTime"`
}

// HandleGenerate runs the assembler once for the caller, outside the
// schedule. An omitted target time defaults to one lookahead from now.
//
// HTTP: POST /api/posts/generate
func (h *PostHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	if req.TargetTime.IsZero() {
		req.TargetTime = time.Now().Add(30 * time.Minute)
	}

	post, err := h.pipeline.GenerateNow(r.Context(), userID, req.TargetTime)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}
