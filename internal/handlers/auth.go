package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/clarkhacks/PersonalGram/internal/auth"
	"go.opentelemetry.io/otel/trace"
)

// SessionCookie is the name of the admin session cookie.
const SessionCookie = "pg_session"

// AuthHandler serves the admin auth endpoints and gates mutations.
type AuthHandler struct {
	manager *auth.Manager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(manager *auth.Manager) *AuthHandler {
	return &AuthHandler{manager: manager}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Setup handles POST /api/auth/setup, the first-run admin
// initialization. Repeat calls are refused with 409.
func (ah *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "auth_setup",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := ah.manager.InitializeAdmin(ctx, req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrAlreadyInitialized) {
			writeError(w, http.StatusConflict, "already initialized")
			return
		}
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, "failed to initialize admin")
		return
	}

	log.Printf("Admin initialized: %s", req.Username)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "admin initialized"})
}

// Login handles POST /api/auth/login and issues a session cookie.
func (ah *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "auth_login",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ok, err := ah.manager.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := ah.manager.CreateSession(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout handles POST /api/auth/logout and revokes the session.
func (ah *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "auth_logout",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	if token := sessionToken(r); token != "" {
		if err := ah.manager.DeleteSession(ctx, token); err != nil {
			span.RecordError(err)
			writeError(w, http.StatusInternalServerError, "failed to delete session")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// RequireSession wraps a handler so it only runs with a valid session.
func (ah *AuthHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		_, ok, err := ah.manager.ValidateSession(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "session validation failed")
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionToken extracts the token from the session cookie or an
// Authorization: Bearer header.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}
