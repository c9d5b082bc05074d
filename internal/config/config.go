package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr      string
	PublicURL string // base URL clients use to reach this server
	JWTSecret string
	JWTTTLMin int

	DBDriver    string // "sqlite" or "postgres"
	SQLiteDSN   string
	PostgresDSN string

	StorageBackend string // "disk" or "minio"
	DiskRoot       string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	SendGridAPIKey string
	SendGridFrom   string
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val != "" {
		return val
	}
	return def
}

func getbool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func MustLoad() Config {
	jwtttl, _ := strconv.Atoi(getenv("JWT_TTL_MIN", "1440"))

	cfg := Config{
		Addr:      getenv("HTTP_ADDR", ":8080"),
		PublicURL: getenv("PUBLIC_URL", "http://localhost:8080"),
		JWTSecret: getenv("JWT_SECRET", ""),
		JWTTTLMin: jwtttl,

		DBDriver:    getenv("DB_DRIVER", "sqlite"),
		SQLiteDSN:   getenv("SQLITE_DSN", "file:chattwins.db?_pragma=foreign_keys(ON)"),
		PostgresDSN: getenv("POSTGRES_DSN", ""),

		StorageBackend: getenv("STORAGE_BACKEND", "disk"),
		DiskRoot:       getenv("STORAGE_DISK_ROOT", "uploads"),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "chat-uploads"),
		MinioUseSSL:    getbool("MINIO_USE_SSL", false),
		MinioPublicURL: getenv("MINIO_PUBLIC_URL", ""),

		SendGridAPIKey: getenv("SENDGRID_API_KEY", ""),
		SendGridFrom:   getenv("SENDGRID_FROM", ""),
	}
	return cfg
}
