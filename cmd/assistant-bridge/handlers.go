// Package main implements the voice-assistant smart-home bridge server
package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/homevirt/assistant-bridge/internal/oauth"
	"github.com/homevirt/assistant-bridge/internal/store"
	"github.com/homevirt/assistant-bridge/internal/templates"
)

// maxIntentBody caps fulfillment request bodies at 1 MiB.
const maxIntentBody = 1 << 20

// Health check handler
func (s *server) handleHealth() http.HandlerFunc {
	type healthResponse struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:  "ok",
			Version: Version,
		}

		// Check component health
		if err := s.checkHealth(r.Context()); err != nil {
			resp.Status = "degraded"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		writeJSON(w, resp)
	}
}

// Account linking form handler
func (s *server) handleAuthForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("client_id") != s.cfg.ClientID {
			s.renderError(w, "Invalid Request", "Unknown client")
			return
		}
		if q.Get("state") == "" {
			s.renderError(w, "Invalid Request", "Missing state parameter")
			return
		}

		token, err := s.csrf.GenerateToken(r.Context())
		if err != nil {
			s.log.Error("generating csrf token", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		s.renderLogin(w, templates.LoginData{
			CSRFToken:    token,
			ClientID:     q.Get("client_id"),
			ResponseType: q.Get("response_type"),
			RedirectURI:  q.Get("redirect_uri"),
			State:        q.Get("state"),
		})
	}
}

// Account linking submission handler: verifies the user's password, then
// starts the authorization flow and redirects back to the assistant.
func (s *server) handleAuthSubmit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := s.csrf.ValidateToken(r.Context(), r.Form.Get("csrf_token")); err != nil {
			s.renderError(w, "Invalid Request", "The form has expired, please try again")
			return
		}

		account, err := s.store.AccountByEmail(r.Context(), r.Form.Get("email"))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			s.log.Error("looking up account", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if account == nil || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(r.Form.Get("password"))) != nil {
			s.retryLogin(w, r, "Wrong email address or password")
			return
		}

		location, err := s.auth.BeginAuthorization(r.Context(), account,
			r.Form.Get("client_id"),
			r.Form.Get("response_type"),
			r.Form.Get("redirect_uri"),
			r.Form.Get("state"),
		)
		if err != nil {
			s.log.Error("beginning authorization", "account", account.ID, "error", err)
			s.renderError(w, "Authorization Failed", "The authorization request is invalid")
			return
		}

		http.Redirect(w, r, location, http.StatusFound)
	}
}

// retryLogin re-renders the form with a fresh token and an error message.
func (s *server) retryLogin(w http.ResponseWriter, r *http.Request, message string) {
	token, err := s.csrf.GenerateToken(r.Context())
	if err != nil {
		s.log.Error("generating csrf token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusUnauthorized)
	s.renderLogin(w, templates.LoginData{
		CSRFToken:    token,
		ClientID:     r.Form.Get("client_id"),
		ResponseType: r.Form.Get("response_type"),
		RedirectURI:  r.Form.Get("redirect_uri"),
		State:        r.Form.Get("state"),
		Error:        message,
	})
}

// Token endpoint handler. Every failure answers 400 with the fixed
// invalid_grant body the assistant platform expects.
func (s *server) handleToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, "invalid_grant")
			return
		}

		clientID, clientSecret, ok := r.BasicAuth()
		if !ok {
			clientID = r.Form.Get("client_id")
			clientSecret = r.Form.Get("client_secret")
		}
		if clientID != s.cfg.ClientID || clientSecret != s.cfg.ClientSecret {
			writeError(w, "invalid_grant")
			return
		}

		var token *oauth.TokenResponse
		var err error
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			token, err = s.auth.ExchangeAuthorizationCode(r.Context(), clientID,
				r.Form.Get("code"), r.Form.Get("redirect_uri"))
		case "refresh_token":
			token, err = s.auth.ExchangeRefreshToken(r.Context(), clientID,
				r.Form.Get("refresh_token"))
		default:
			writeError(w, "invalid_grant")
			return
		}
		if err != nil {
			if !errors.Is(err, oauth.ErrInvalidGrant) && !errors.Is(err, oauth.ErrInvalidClient) {
				s.log.Error("exchanging token", "error", err)
			}
			writeError(w, "invalid_grant")
			return
		}

		writeJSON(w, token)
	}
}

// Intent fulfillment handler. The dispatcher owns the error taxonomy, so
// every outcome including auth failures answers 200 with a protocol body.
func (s *server) handleIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxIntentBody))
		if err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		writeJSON(w, s.dispatcher.Handle(r.Context(), bearer, body))
	}
}

func (s *server) renderLogin(w http.ResponseWriter, data templates.LoginData) {
	if err := s.templates.RenderLogin(w, data); err != nil {
		http.Error(w, "error rendering page", http.StatusInternalServerError)
	}
}

func (s *server) renderError(w http.ResponseWriter, title, message string) {
	w.WriteHeader(http.StatusBadRequest)
	if err := s.templates.RenderError(w, templates.ErrorData{Title: title, Message: message}); err != nil {
		http.Error(w, "error rendering page", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "error encoding response", http.StatusInternalServerError)
		return
	}
}

func writeError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": code}); err != nil {
		return
	}
}
