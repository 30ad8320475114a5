package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"serwis-uzytkownikow/internal/auth"
	"serwis-uzytkownikow/internal/database"
	"serwis-uzytkownikow/internal/identity"
	"serwis-uzytkownikow/internal/oauth"

	"github.com/go-chi/chi/v5"
)

type TokenResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...."`
}

// @Summary      Start an OAuth login
// @Description  Redirects the client to the configured identity provider's authorization page.
// @Tags         auth
// @Param        provider  path  string  true  "Provider name, e.g. google"
// @Success      302  {string}  string "Redirect to the provider"
// @Failure      404  {string}  string "Unknown provider"
// @Router       /auth/login/{provider} [get]
func (s *Server) LoginRedirectHandler(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	authURL, err := s.oauth.AuthCodeURL(provider)
	if err != nil {
		if errors.Is(err, oauth.ErrUnknownProvider) {
			http.Error(w, "Unknown provider", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: failed to build auth URL for %s: %v", provider, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// @Summary      OAuth callback
// @Description  Exchanges the authorization code for a verified identity, resolves or creates the user and returns a signed access token.
// @Tags         auth
// @Produce      json
// @Param        provider  path   string  true   "Provider name"
// @Param        code      query  string  true   "Authorization code"
// @Param        state     query  string  true   "State issued at login start"
// @Success      200  {object}  TokenResponse
// @Failure      400  {string}  string "Login failed"
// @Router       /auth/{provider}/callback [get]
func (s *Server) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	// Provider-reported errors are not echoed back to the client.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		log.Printf("OAuth callback error from %s: %s", provider, errParam)
		http.Error(w, "Login failed", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Error(w, "Missing code or state", http.StatusBadRequest)
		return
	}

	assertion, err := s.oauth.Exchange(r.Context(), provider, state, code)
	if err != nil {
		log.Printf("OAuth exchange failed for %s: %v", provider, err)
		http.Error(w, "Login failed", http.StatusBadRequest)
		return
	}

	user, err := s.resolver.ResolveOrCreate(r.Context(), assertion.Provider, assertion.Subject, assertion.Email)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidAssertion) {
			http.Error(w, "Identity provider did not supply an email", http.StatusBadRequest)
			return
		}
		log.Printf("ERROR: failed to resolve identity for %s: %v", provider, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	accessToken, err := auth.GenerateJWT(user, s.config.JWT.Secret, s.config.JWT.Expiry())
	if err != nil {
		http.Error(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	s.store.RecordEvent(r.Context(), &user.ID, user.ID, database.EventUserLogin, map[string]interface{}{
		"user_id":  user.ID,
		"provider": user.Provider,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{AccessToken: accessToken})
}
