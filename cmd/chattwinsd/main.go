package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"

	"github.com/chattwins/chattwins/internal/config"
	"github.com/chattwins/chattwins/internal/hub"
	"github.com/chattwins/chattwins/internal/mailer"
	"github.com/chattwins/chattwins/internal/server"
	"github.com/chattwins/chattwins/internal/storage/postgres"
	"github.com/chattwins/chattwins/internal/storage/sqlite"
	"github.com/chattwins/chattwins/internal/uploads"
	"github.com/joho/godotenv"
)

func main() {
	migrate := flag.Bool("migrate", false, "run migrations and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using process environment")
	}
	cfg := config.MustLoad()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	var db *sql.DB
	switch cfg.DBDriver {
	case "postgres":
		conn, err := postgres.New(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		if *migrate {
			if err := conn.Migrate(); err != nil {
				log.Fatalf("migration failed: %v", err)
			}
			slog.Info("migration completed")
			return
		}
		db = conn.Db
	default:
		conn, err := sqlite.New(cfg.SQLiteDSN)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		if *migrate {
			if err := conn.Migrate(); err != nil {
				log.Fatalf("migration failed: %v", err)
			}
			slog.Info("migration completed")
			return
		}
		db = conn.Db
	}
	defer db.Close()

	var bucket uploads.Bucket
	if cfg.StorageBackend == "minio" {
		m, err := uploads.NewMinio(context.Background(), uploads.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			log.Fatalf("minio: %v", err)
		}
		bucket = m
	} else {
		d, err := uploads.NewDisk(cfg.DiskRoot, cfg.PublicURL)
		if err != nil {
			log.Fatalf("disk storage: %v", err)
		}
		bucket = d
	}

	h := hub.New()
	go h.Run()

	m := mailer.New(cfg.SendGridAPIKey, cfg.SendGridFrom)

	r := server.New(cfg, db, h, bucket, m)
	slog.Info("listening", "addr", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
