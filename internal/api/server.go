package api

import (
	"serwis-uzytkownikow/internal/config"
	"serwis-uzytkownikow/internal/database"
	"serwis-uzytkownikow/internal/identity"
	"serwis-uzytkownikow/internal/oauth"
	"serwis-uzytkownikow/internal/websocket"
)

type Server struct {
	config   *config.Config
	store    *database.Store
	oauth    *oauth.Client
	resolver *identity.Resolver
	wsHub    *websocket.Hub
}

func NewServer(cfg *config.Config, store *database.Store, oauthClient *oauth.Client, wsHub *websocket.Hub) *Server {
	return &Server{
		config:   cfg,
		store:    store,
		oauth:    oauthClient,
		resolver: identity.NewResolver(store),
		wsHub:    wsHub,
	}
}
