package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Segredo usado apenas quando JWT_SECRET está ausente fora de produção.
const insecureDevSecret = "segredo-inseguro-apenas-desenvolvimento-nao-usar"

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port          int
	Ambiente      string
	DBDSN         string
	RedisURL      string
	JWTSecret     string
	JWTAccessTTL  time.Duration
	SessaoTTL     time.Duration
	RefreshTTL    time.Duration
	AllowOrigins  []string
	RateLimitAuth RateLimitConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// IsProduction indica se o processo roda com APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Ambiente == "production"
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
//
// O segredo JWT segue contrato operacional explícito: em produção a
// ausência é erro fatal de arranque; em desenvolvimento vira warning com
// fallback inseguro.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.Ambiente = strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", "development")))

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET com pelo menos 32 caracteres é obrigatório em produção")
		}
		log.Warn().Msg("JWT_SECRET ausente ou curto; usando segredo inseguro de desenvolvimento")
		cfg.JWTSecret = insecureDevSecret
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	sessaoTTL, err := parseDurationEnv("SESSAO_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.SessaoTTL = sessaoTTL

	refreshTTL, err := parseDurationEnv("REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTTL = refreshTTL

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}
