package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"serwis-uzytkownikow/internal/auth"
	"serwis-uzytkownikow/internal/config"
	"serwis-uzytkownikow/internal/models"
	"serwis-uzytkownikow/internal/oauth"

	"github.com/stretchr/testify/require"
)

// fakeProviderServer builds a Server wired to an in-process identity
// provider: a token endpoint that accepts any code and a userinfo endpoint
// returning the given payload.
func fakeProviderServer(t *testing.T, userInfo map[string]interface{}) *Server {
	t.Helper()

	userInfoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer provider-access-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userInfo)
	}))
	t.Cleanup(userInfoSrv.Close)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "provider-access-token",
			"token_type":   "bearer",
		})
	}))
	t.Cleanup(tokenSrv.Close)

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "api_test_secret", ExpiryMinutes: 60},
		OAuth: config.OAuthConfig{
			Providers: map[string]config.OAuthProvider{
				"google": {
					ClientID:     "test-client",
					ClientSecret: "test-secret",
					RedirectURL:  "http://localhost:8080/auth/google/callback",
					AuthURL:      tokenSrv.URL + "/authorize",
					TokenURL:     tokenSrv.URL + "/token",
					UserInfoURL:  userInfoSrv.URL,
					Scopes:       []string{"openid", "email"},
				},
			},
		},
	}

	return NewServer(cfg, testServer.store, oauth.NewClient(cfg.OAuth), testServer.wsHub)
}

// startLogin drives the redirect handler and extracts the issued state.
func startLogin(t *testing.T, srv *Server) string {
	t.Helper()

	req := httptest.NewRequest("GET", "/auth/login/google", nil)
	req = withURLParam(req, "provider", "google")
	rr := httptest.NewRecorder()
	http.HandlerFunc(srv.LoginRedirectHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusFound, rr.Code)

	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestLoginRedirectHandler_UnknownProvider(t *testing.T) {
	req := httptest.NewRequest("GET", "/auth/login/facebook", nil)
	req = withURLParam(req, "provider", "facebook")
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.LoginRedirectHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCallbackHandler_FullLogin(t *testing.T) {
	srv := fakeProviderServer(t, map[string]interface{}{
		"sub":   "google-subject-1",
		"email": "oauth_login@test.com",
	})

	state := startLogin(t, srv)

	req := httptest.NewRequest("GET", "/auth/google/callback?code=authcode&state="+state, nil)
	req = withURLParam(req, "provider", "google")
	rr := httptest.NewRecorder()
	http.HandlerFunc(srv.CallbackHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)

	claims, err := auth.VerifyJWT(resp.AccessToken, srv.config.JWT.Secret)
	require.NoError(t, err)
	require.Equal(t, "oauth_login@test.com", claims.Email)
	require.Equal(t, models.RoleUser, claims.Role)
	require.Equal(t, models.DefaultQuota, claims.Quota)

	user, err := srv.store.GetUserByProviderIdentity(req.Context(), "google", "google-subject-1")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, claims.UserID, user.ID)
}

func TestCallbackHandler_SecondLoginReusesUser(t *testing.T) {
	srv := fakeProviderServer(t, map[string]interface{}{
		"sub":   "google-subject-2",
		"email": "oauth_repeat@test.com",
	})

	var ids []int64
	for i := 0; i < 2; i++ {
		state := startLogin(t, srv)
		req := httptest.NewRequest("GET", "/auth/google/callback?code=authcode&state="+state, nil)
		req = withURLParam(req, "provider", "google")
		rr := httptest.NewRecorder()
		http.HandlerFunc(srv.CallbackHandler).ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		claims, err := auth.VerifyJWT(resp.AccessToken, srv.config.JWT.Secret)
		require.NoError(t, err)
		ids = append(ids, claims.UserID)
	}

	require.Equal(t, ids[0], ids[1], "repeat login maps to the same account")
}

func TestCallbackHandler_ProviderError(t *testing.T) {
	req := httptest.NewRequest("GET", "/auth/google/callback?error=access_denied", nil)
	req = withURLParam(req, "provider", "google")
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.CallbackHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCallbackHandler_MissingCodeOrState(t *testing.T) {
	for _, query := range []string{"", "code=authcode", "state=somestate"} {
		req := httptest.NewRequest("GET", "/auth/google/callback?"+query, nil)
		req = withURLParam(req, "provider", "google")
		rr := httptest.NewRecorder()
		http.HandlerFunc(testServer.CallbackHandler).ServeHTTP(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code, "query %q", query)
	}
}

func TestCallbackHandler_ForgedState(t *testing.T) {
	srv := fakeProviderServer(t, map[string]interface{}{
		"sub":   "google-subject-3",
		"email": "oauth_forged@test.com",
	})

	req := httptest.NewRequest("GET", "/auth/google/callback?code=authcode&state=forged", nil)
	req = withURLParam(req, "provider", "google")
	rr := httptest.NewRecorder()
	http.HandlerFunc(srv.CallbackHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCallbackHandler_MissingEmail(t *testing.T) {
	srv := fakeProviderServer(t, map[string]interface{}{
		"sub": "google-subject-4",
	})

	state := startLogin(t, srv)

	req := httptest.NewRequest("GET", "/auth/google/callback?code=authcode&state="+state, nil)
	req = withURLParam(req, "provider", "google")
	rr := httptest.NewRecorder()
	http.HandlerFunc(srv.CallbackHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	ghost, err := srv.store.GetUserByProviderIdentity(req.Context(), "google", "google-subject-4")
	require.NoError(t, err)
	require.Nil(t, ghost, "no account is created without an email")
}
