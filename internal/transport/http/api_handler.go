package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"history-stairs/internal/app"
	"history-stairs/internal/domain"
)

// APIHandler serves sign-in, profile and ranking endpoints.
type APIHandler struct {
	accounts     *app.AccountService
	rankingLimit int
}

func NewAPIHandler(accounts *app.AccountService, rankingLimit int) *APIHandler {
	if rankingLimit <= 0 || rankingLimit > app.MaxRankingLimit {
		rankingLimit = app.MaxRankingLimit
	}
	return &APIHandler{accounts: accounts, rankingLimit: rankingLimit}
}

type rankingResponse struct {
	Entries []domain.RankingEntry `json:"entries"`
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/signin", h.SignIn)
	mux.HandleFunc("POST /api/auth/signout", h.SignOut)
	mux.HandleFunc("GET /api/me", h.Me)
	mux.HandleFunc("GET /api/ranking", h.Ranking)
}

func (h *APIHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid sign-in payload")
		return
	}
	signed, err := h.accounts.SignIn(r.Context(), creds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signed)
}

func (h *APIHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeServiceError(w, domain.ErrUnauthenticated)
		return
	}
	if err := h.accounts.SignOut(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := h.accounts.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	profile, err := h.accounts.CurrentProfile(r.Context(), identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *APIHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	limit := h.rankingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, rankingResponse{Entries: h.accounts.Rankings(r.Context(), limit)})
}

// bearerToken reads "Authorization: Bearer <token>", falling back to ?token=.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAuthFailed), errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrProfileNotFound), errors.Is(err, domain.ErrGameNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}
