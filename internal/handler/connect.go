package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/auth"
	"github.com/fsakai/autopost/internal/service"
)

// ConnectHandler serves the Instagram account link: reading its state and
// connecting or refreshing it.
type ConnectHandler struct {
	accounts *service.AccountService
	facebook *auth.FacebookProvider // nil when no Meta app is configured
	logger   *slog.Logger
}

// NewConnectHandler creates a ConnectHandler.
func NewConnectHandler(accounts *service.AccountService, facebook *auth.FacebookProvider, logger *slog.Logger) *ConnectHandler {
	return &ConnectHandler{
		accounts: accounts,
		facebook: facebook,
		logger:   logger,
	}
}

type accountResponse struct {
	Connected bool `json:"connected"`
	Account   any  `json:"account,omitempty"`
}

// HandleGet returns the caller's account link state. A never-connected
// user gets connected=false, not a 404 — the dashboard renders the
// connect prompt from this.
//
// HTTP: GET /api/instagram/account
func (h *ConnectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	account, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			writeJSON(w, http.StatusOK, accountResponse{Connected: false})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{Connected: true, Account: account})
}

type connectRequest struct {
	AccessToken string `json:"accessToken"`
	Code        string `json:"code"` // Facebook Login authorization code, alternative to a raw token
	BusinessID  string `json:"businessId"`
	PageID      string `json:"pageId"`
	Username    string `json:"username"`
}

// HandleConnect creates or refreshes the account link. The caller sends
// either a raw access token or a Facebook Login code to exchange for one.
//
// HTTP: POST /api/instagram/connect
func (h *ConnectHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	token := req.AccessToken
	if token == "" && req.Code != "" {
		if h.facebook == nil {
			writeError(w, apperror.ValidationFailed("code", "Facebook login is not configured"))
			return
		}
		exchanged, err := h.facebook.Exchange(r.Context(), req.Code)
		if err != nil {
			h.logger.Warn("facebook code exchange failed", slog.String("error", err.Error()))
			writeError(w, apperror.ValidationFailed("code", "code exchange failed"))
			return
		}
		token = exchanged
	}

	account, err := h.accounts.Connect(r.Context(), userID, service.ConnectParams{
		AccessToken: token,
		BusinessID:  req.BusinessID,
		PageID:      req.PageID,
		Username:    req.Username,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{Connected: true, Account: account})
}
