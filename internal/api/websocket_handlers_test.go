package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"serwis-uzytkownikow/internal/database"
	"serwis-uzytkownikow/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestServeWsHandler_RejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.ServeWsHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServeWsHandler_RejectsInvalidToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws?token=not-a-jwt", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.ServeWsHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServeWsHandler_DeliversRegistryEventsToAdmin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(testServer.ServeWsHandler))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + testAdminToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the hub a moment to process the registration.
	time.Sleep(100 * time.Millisecond)

	target := createTestUserAPI(t, models.RoleUser, 100)
	testServer.store.RecordEvent(context.Background(), &testAdminClaims.UserID, target.ID,
		database.EventUserUpdated, map[string]int64{"user_id": target.ID})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), database.EventUserUpdated)
}
