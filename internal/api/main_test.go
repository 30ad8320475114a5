package api

import (
	"context"
	"log"
	"os"
	"testing"

	"serwis-uzytkownikow/internal/auth"
	"serwis-uzytkownikow/internal/config"
	"serwis-uzytkownikow/internal/database"
	"serwis-uzytkownikow/internal/models"
	"serwis-uzytkownikow/internal/oauth"
	"serwis-uzytkownikow/internal/websocket"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testServer      *Server
	testAdminToken  string
	testAdminClaims *auth.AppClaims
	testUserToken   string
	testUserClaims  *auth.AppClaims
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:14-alpine",
		postgres.WithDatabase("test_api_db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		log.Fatalf("Could not start postgres: %s", err)
	}
	defer pgContainer.Terminate(ctx)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("Could not get connection string: %s", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Could not connect to database: %s", err)
	}

	schema, err := os.ReadFile("../../db/init.sql")
	if err != nil {
		log.Fatalf("Could not read schema file: %s", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("Could not apply schema: %s", err)
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	store := database.NewStore(pool, wsHub)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "api_test_secret", ExpiryMinutes: 60}}
	oauthClient := oauth.NewClient(config.OAuthConfig{})
	testServer = NewServer(cfg, store, oauthClient, wsHub)

	admin, err := store.CreateUser(ctx, database.CreateUserParams{
		Email: "admin@test.com",
		Role:  models.RoleAdmin,
		Quota: 1000,
	})
	if err != nil {
		log.Fatalf("Could not create admin: %s", err)
	}

	user, err := store.CreateUser(ctx, database.CreateUserParams{
		Email: "user@test.com",
		Role:  models.RoleUser,
		Quota: 50,
	})
	if err != nil {
		log.Fatalf("Could not create user: %s", err)
	}

	testAdminToken, testAdminClaims = mustTokenFor(admin, cfg)
	testUserToken, testUserClaims = mustTokenFor(user, cfg)

	os.Exit(m.Run())
}

func mustTokenFor(user *models.User, cfg *config.Config) (string, *auth.AppClaims) {
	token, err := auth.GenerateJWT(user, cfg.JWT.Secret, cfg.JWT.Expiry())
	if err != nil {
		log.Fatalf("Could not generate token: %s", err)
	}
	claims, err := auth.VerifyJWT(token, cfg.JWT.Secret)
	if err != nil {
		log.Fatalf("Could not verify token: %s", err)
	}
	return token, claims
}
