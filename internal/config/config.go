package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	MinIO        MinIOConfig
	CORS         CORSConfig
	SMTP         SMTPConfig
	Firebase     FirebaseConfig
	RateLimit    RateLimitConfig
	Notification NotificationConfig
	Cache        CacheConfig
}

type AppConfig struct {
	Env  string
	Port string
}

func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DBConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=UTC"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type CORSConfig struct {
	Origins []string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type FirebaseConfig struct {
	// CredentialsFile is a service account JSON. Push is disabled when empty.
	CredentialsFile string
}

type RateLimitConfig struct {
	Messages int
	Window   time.Duration
}

type NotificationConfig struct {
	// ActivityWindow is how recently a user must have been seen for
	// email and push to be skipped.
	ActivityWindow time.Duration
	// AppURL is linked from notification emails.
	AppURL string
}

type CacheConfig struct {
	TTL time.Duration
}

var defaults = map[string]interface{}{
	"app.env":                      "development",
	"app.port":                     "8080",
	"db.driver":                    "postgres",
	"db.host":                      "localhost",
	"db.port":                      "5432",
	"db.user":                      "chatcore",
	"db.password":                  "chatcore",
	"db.name":                      "chatcore",
	"db.sslmode":                   "disable",
	"db.sqlite_path":               "chatcore.db",
	"redis.host":                   "localhost",
	"redis.port":                   "6379",
	"redis.password":               "",
	"redis.db":                     0,
	"jwt.secret":                   "default-secret",
	"jwt.expiry":                   "24h",
	"minio.endpoint":               "localhost:9000",
	"minio.public_url":             "",
	"minio.access_key":             "minioadmin",
	"minio.secret_key":             "minioadmin",
	"minio.bucket":                 "chatcore-media",
	"minio.use_ssl":                false,
	"cors.origins":                 "http://localhost:3000",
	"smtp.host":                    "mailpit",
	"smtp.port":                    "1025",
	"smtp.username":                "",
	"smtp.password":                "",
	"smtp.from":                    "noreply@chatcore.local",
	"smtp.from_name":               "ChatCore",
	"firebase.credentials_file":    "",
	"ratelimit.messages":           30,
	"ratelimit.window":             "60s",
	"notification.activity_window": "5m",
	"notification.app_url":         "http://localhost:3000",
	"cache.ttl":                    "5m",
}

// Load reads configuration from .env, the optional config/chatcore.yaml and
// environment variables. Environment wins: APP_PORT overrides app.port.
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment variables")
	}

	v, err := newViper()
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}
	return fromViper(v)
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("chatcore")
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		DB: DBConfig{
			Driver:     strings.ToLower(v.GetString("db.driver")),
			Host:       v.GetString("db.host"),
			Port:       v.GetString("db.port"),
			User:       v.GetString("db.user"),
			Password:   v.GetString("db.password"),
			Name:       v.GetString("db.name"),
			SSLMode:    v.GetString("db.sslmode"),
			SQLitePath: v.GetString("db.sqlite_path"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Expiry: durationOr(v, "jwt.expiry", 24*time.Hour),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("minio.endpoint"),
			PublicURL: v.GetString("minio.public_url"),
			AccessKey: v.GetString("minio.access_key"),
			SecretKey: v.GetString("minio.secret_key"),
			Bucket:    v.GetString("minio.bucket"),
			UseSSL:    v.GetBool("minio.use_ssl"),
		},
		CORS: CORSConfig{
			Origins: splitList(v.GetString("cors.origins")),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetString("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
			FromName: v.GetString("smtp.from_name"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: v.GetString("firebase.credentials_file"),
		},
		RateLimit: RateLimitConfig{
			Messages: v.GetInt("ratelimit.messages"),
			Window:   durationOr(v, "ratelimit.window", time.Minute),
		},
		Notification: NotificationConfig{
			ActivityWindow: durationOr(v, "notification.activity_window", 5*time.Minute),
			AppURL:         v.GetString("notification.app_url"),
		},
		Cache: CacheConfig{
			TTL: durationOr(v, "cache.ttl", 5*time.Minute),
		},
	}
}

// durationOr falls back when the value does not parse or is not positive.
func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
