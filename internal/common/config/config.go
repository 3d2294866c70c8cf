package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int

	// Адреса внутренних сервисов (для gateway).
	AnalyzerURL string
	RendererURL string

	// Внешний inference API.
	InferenceURL   string
	InferenceKey   string
	InferenceModel string

	// Хранилища analyzer-сервиса.
	DBPath      string
	StorageRoot string
}

// Load загружает конфигурацию из .env (если есть) и переменных окружения.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 180),

		AnalyzerURL: getEnv("ANALYZER_URL", "http://localhost:3001"),
		RendererURL: getEnv("RENDERER_URL", "http://localhost:3002"),

		InferenceURL:   getEnv("INFERENCE_API_URL", "https://api.anthropic.com"),
		InferenceKey:   getEnv("INFERENCE_API_KEY", ""),
		InferenceModel: getEnv("INFERENCE_MODEL", "claude-sonnet-4-20250514"),

		DBPath:      getEnv("ANALYZER_DB_PATH", "data/db/analyses.db"),
		StorageRoot: getEnv("STORAGE_ROOT", "data/analyses"),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
