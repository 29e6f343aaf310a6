package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Runtime settings read from the environment (optionally seeded by a .env file).
type Config struct {
	Port      string
	LogLevel  string
	LogPretty bool

	StoreDriver string
	DBPath      string
	DatabaseURL string
	RedisAddr   string

	VenuesAPIURL   string
	VenuesAPIToken string
	IPWhoIsURL     string
	IPAPIURL       string

	CORSOrigins []string
}

// Load reads .env (when present) and the process environment.
// envLoaded reports whether a .env file was found.
func Load() (cfg Config, envLoaded bool) {
	envLoaded = godotenv.Load() == nil

	cfg = Config{
		Port:      Get("PORT", "8080"),
		LogLevel:  Get("LOG_LEVEL", "info"),
		LogPretty: GetBool("LOG_PRETTY", false),

		StoreDriver: strings.ToLower(Get("STORE_DRIVER", "sqlite")),
		DBPath:      Get("DB_PATH", "data/beerspots.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   Get("REDIS_ADDR", "localhost:6379"),

		VenuesAPIURL:   Get("VENUES_API_URL", "https://piwo.jacolos.pl/api"),
		VenuesAPIToken: os.Getenv("VENUES_API_TOKEN"),
		IPWhoIsURL:     Get("IPWHOIS_URL", "https://ipwho.is/"),
		IPAPIURL:       Get("IPAPI_URL", "http://ip-api.com/json/?fields=lat,lon,status"),

		CORSOrigins: splitList(Get("CORS_ORIGINS", "*")),
	}

	return cfg, envLoaded
}

func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(Get(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	out := make([]string, 0, 4)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
