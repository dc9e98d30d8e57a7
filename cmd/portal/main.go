package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/imAdityaSharma/doc-auth"
	"github.com/imAdityaSharma/doc-auth/middleware/jwtware"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type appConfig struct {
	Addr          string
	DatabaseDSN   string
	SigningKey    string
	TokenHours    int
	Issuer        string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPFrom      string
	Debug         bool
}

func loadConfig() appConfig {
	return appConfig{
		Addr:          envOr("PORTAL_ADDR", ":8080"),
		DatabaseDSN:   envOr("PORTAL_DB_DSN", "file::memory:?cache=shared"),
		SigningKey:    envOr("PORTAL_SIGNING_KEY", ""),
		TokenHours:    envIntOr("PORTAL_TOKEN_HOURS", 24),
		Issuer:        envOr("PORTAL_ISSUER", "doc-auth"),
		RedisHost:     envOr("REDIS_HOST", "localhost"),
		RedisPort:     envOr("REDIS_PORT", "6379"),
		RedisPassword: envOr("REDIS_PASSWORD", ""),
		SMTPHost:      envOr("SMTP_HOST", ""),
		SMTPPort:      envIntOr("SMTP_PORT", 587),
		SMTPUser:      envOr("SMTP_USER", ""),
		SMTPPassword:  envOr("SMTP_PASSWORD", ""),
		SMTPFrom:      envOr("SMTP_FROM", ""),
		Debug:         envOr("PORTAL_DEBUG", "") != "",
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func newRedisClient(cfg appConfig) *redis.Client {
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	}

	// password set implies a managed instance that requires TLS
	if cfg.RedisPassword != "" {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := redis.NewClient(options)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Panicf("failed to connect to redis: %v", err)
	}

	return client
}

func newMailer(cfg appConfig) auth.Mailer {
	if cfg.SMTPHost == "" {
		return auth.NewLogMailer(nil)
	}
	return auth.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
}

func main() {
	cfg := loadConfig()

	if cfg.SigningKey == "" {
		log.Panic("PORTAL_SIGNING_KEY is required")
	}

	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		log.Panicf("failed to open database: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := auth.RunMigrations(ctx, db); err != nil {
		log.Panicf("failed to run migrations: %v", err)
	}

	redisClient := newRedisClient(cfg)

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	codes := auth.NewVerificationCodes(redisClient)
	sessions := auth.NewSessionStore(redisClient)
	provider := auth.NewAccountProvider(repo.Accounts())
	tokens := auth.NewTokenService([]byte(cfg.SigningKey), cfg.TokenHours, cfg.Issuer, nil)
	auther := auth.NewAuthenticator(provider, tokens, sessions)
	mailer := newMailer(cfg)

	app := fiber.New(fiber.Config{
		AppName:      "doc-auth portal",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	auth.RegisterAuthRoutes(app,
		auth.WithControllerDebug(cfg.Debug),
		auth.WithControllerRepo(repo),
		auth.WithControllerAuther(auther),
		auth.WithControllerCodes(codes),
		auth.WithControllerMailer(mailer),
	)

	registerDashboards(app, tokens)

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			log.Panicf("server stopped: %v", err)
		}
	}()

	waitExitSignal()

	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("db close error: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}
}

func registerDashboards(app *fiber.App, tokens *auth.TokenServiceImpl) {
	dashboards := map[string]auth.Role{
		"/puser/dashboard":    auth.RolePatient,
		"/duser/dashboard":    auth.RoleDoctor,
		"/parauser/dashboard": auth.RoleParamedic,
	}

	for path, role := range dashboards {
		app.Get(path, jwtware.New(jwtware.Config{
			TokenValidator: tokenValidator{tokens},
			RequiredRole:   string(role),
		}), func(c *fiber.Ctx) error {
			claims, _ := c.Locals("user").(jwtware.AuthClaims)
			return c.JSON(fiber.Map{
				"email": claims.Email(),
				"role":  claims.Role(),
			})
		})
	}
}

// tokenValidator adapts the auth token service to the middleware interface
type tokenValidator struct {
	tokens *auth.TokenServiceImpl
}

func (t tokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := t.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func waitExitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
