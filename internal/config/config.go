package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"tripsynth/internal/services"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	DBPath      string
	SeedPath    string
	DatabaseURL string
	RedisURL    string
	LegCacheTTL time.Duration

	ORSAPIKey      string
	ORSBaseURL     string
	WeatherBaseURL string
	// Router is "ors" or "haversine". Empty picks ors when an API key is set.
	Router string

	CORSOrigins  []string
	ItineraryTTL time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	ProfilePath string
	Planner     services.PlannerOptions
}

// Get returns the environment value for key, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load reads the configuration from the environment and applies the planner
// profile named by PLANNER_PROFILE, if any. Call godotenv.Load first to pick up
// a .env file.
func Load() (Config, error) {
	cfg := Config{
		Port:           Get("PORT", "8080"),
		LogLevel:       Get("LOG_LEVEL", "info"),
		LogFormat:      Get("LOG_FORMAT", "json"),
		DBPath:         Get("DB_PATH", "data/app.db"),
		SeedPath:       Get("SEED_PATH", "data/seeds/candidates.json"),
		DatabaseURL:    Get("DATABASE_URL", ""),
		RedisURL:       Get("REDIS_URL", ""),
		ORSAPIKey:      Get("ORS_API_KEY", ""),
		ORSBaseURL:     Get("ORS_BASE_URL", ""),
		WeatherBaseURL: Get("WEATHER_BASE_URL", ""),
		Router:         strings.ToLower(Get("ROUTER", "")),
		CORSOrigins:    splitList(Get("CORS_ORIGINS", "*")),
		SMTPHost:       Get("SMTP_HOST", ""),
		SMTPUsername:   Get("SMTP_USERNAME", ""),
		SMTPPassword:   Get("SMTP_PASSWORD", ""),
		SMTPFrom:       Get("SMTP_FROM", ""),
		ProfilePath:    Get("PLANNER_PROFILE", ""),
		Planner:        services.DefaultPlannerOptions(),
	}

	var err error
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	if cfg.LegCacheTTL, err = getDuration("LEG_CACHE_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ItineraryTTL, err = getDuration("ITINERARY_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}

	switch cfg.Router {
	case "":
		cfg.Router = "haversine"
		if cfg.ORSAPIKey != "" {
			cfg.Router = "ors"
		}
	case "ors":
		if cfg.ORSAPIKey == "" {
			return Config{}, fmt.Errorf("config: ROUTER=ors requires ORS_API_KEY")
		}
	case "haversine":
	default:
		return Config{}, fmt.Errorf("config: unknown ROUTER %q", cfg.Router)
	}

	if cfg.ProfilePath != "" {
		if cfg.Planner, err = LoadProfile(cfg.ProfilePath, cfg.Planner); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Planner.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: planner options: %w", err)
	}
	return cfg, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", key, raw)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration", key, raw)
	}
	return v, nil
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
