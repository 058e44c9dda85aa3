package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ignatij/letterflow/pkg/llm"
)

// Config centralizes runtime settings for the server, the scheduler and
// the collaborator API credentials.
type Config struct {
	Port            string
	PollIntervalSec int
	DefaultModel    string

	AnthropicAPIKey  string
	AnthropicBaseURL string

	EventsAPIKey     string
	EventsCalendarID string

	PodcastClientID     string
	PodcastClientSecret string
	PodcastShowID       string

	CMSToken          string
	CMSJobsCollection string
	CMSBlogCollection string
	CMSSiteDomain     string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getEnv("PORT", "8080"),
		PollIntervalSec: getEnvInt("POLL_INTERVAL_SEC", 15),
		DefaultModel:    getEnv("DEFAULT_MODEL", llm.AvailableModels[0]),

		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),

		EventsAPIKey:     getEnv("LUMA_API_KEY", ""),
		EventsCalendarID: getEnv("LUMA_CALENDAR_ID", ""),

		PodcastClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
		PodcastClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),
		PodcastShowID:       getEnv("SPOTIFY_SHOW_ID", ""),

		CMSToken:          getEnv("WEBFLOW_API_KEY", ""),
		CMSJobsCollection: getEnv("WEBFLOW_JOBS_COLLECTION", ""),
		CMSBlogCollection: getEnv("WEBFLOW_BLOGS_COLLECTION", ""),
		CMSSiteDomain:     getEnv("WEBFLOW_SITE_DOMAIN", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
