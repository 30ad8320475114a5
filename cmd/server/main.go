// @title           User Account Service API
// @version         1.0
// @host            localhost
// @schemes         http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"

	"serwis-uzytkownikow/internal/api"
	"serwis-uzytkownikow/internal/config"
	"serwis-uzytkownikow/internal/database"
	"serwis-uzytkownikow/internal/oauth"
	"serwis-uzytkownikow/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "serwis-uzytkownikow/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Nie można wczytać konfiguracji: %v", err)
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		log.Fatalf("Nie można połączyć się z bazą danych: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		log.Fatalf("Nie można pingować bazy danych: %v", err)
	}
	log.Println("Pomyślnie połączono z bazą danych")

	wsHub := websocket.NewHub()
	go wsHub.Run()

	store := database.NewStore(dbpool, wsHub)

	if cfg.Admin.Email != "" {
		admin, err := store.EnsureAdminUser(context.Background(), cfg.Admin.Email, cfg.Admin.Quota)
		if err != nil {
			log.Fatalf("Nie można utworzyć pierwszego administratora: %v", err)
		}
		log.Printf("Pierwszy administrator: %s (id=%d)", admin.Email, admin.ID)
	} else {
		log.Println("admin.email nie ustawiony, pomijam tworzenie administratora")
	}

	oauthClient := oauth.NewClient(cfg.OAuth)
	server := api.NewServer(cfg, store, oauthClient, wsHub)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(api.MetricsMiddleware)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("https://localhost/swagger/doc.json"),
	))

	r.Get("/ws", server.ServeWsHandler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Serwis użytkowników działa! Dokumentacja dostępna pod /swagger/index.html"))
	})

	r.Get("/auth/login/{provider}", server.LoginRedirectHandler)
	r.Get("/auth/{provider}/callback", server.CallbackHandler)

	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(server.AuthMiddleware)
		r.Post("/users", server.CreateUserHandler)
		r.Get("/users", server.ListUsersHandler)
		r.Get("/users/me", server.GetCurrentUserHandler)
		r.Get("/users/{id}", server.GetUserHandler)
		r.Put("/users/{id}", server.UpdateUserHandler)
		r.Patch("/users/{id}/role", server.UpdateUserRoleHandler)
		r.Patch("/users/{id}/quota", server.UpdateUserQuotaHandler)
		r.Delete("/users/{id}", server.DeleteUserHandler)
		r.Get("/events", server.GetEventsHandler)
	})

	log.Println("Uruchamianie serwera na porcie :8080")
	if err := http.ListenAndServe(":8080", r); err != nil {
		log.Fatalf("Nie można uruchomić serwera: %v", err)
	}
}
