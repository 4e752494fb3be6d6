package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings holds runtime configuration resolved from the environment
type Settings struct {
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	RedisURL      string `mapstructure:"REDIS_URL"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	JWTSecret     string `mapstructure:"SUPABASE_JWT_SECRET"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`
	ServerAddr    string `mapstructure:"SERVER_ADDR"`
	AllowOrigin   string `mapstructure:"ALLOW_ORIGIN"`
}

// Current is the settings instance populated by Load
var Current Settings

var settingKeys = []string{
	"DATABASE_URL",
	"REDIS_URL",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"SUPABASE_JWT_SECRET",
	"JWT_AUDIENCE",
	"SERVER_ADDR",
	"ALLOW_ORIGIN",
}

// Load reads .env files (if any) and the process environment into Current
func Load(envFiles ...string) (*Settings, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	} else {
		log.Println("✅ Loaded environment variables from .env")
	}

	v := viper.New()
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_AUDIENCE", "authenticated")
	v.SetDefault("SERVER_ADDR", "0.0.0.0:8080")
	v.SetDefault("ALLOW_ORIGIN", "*")
	v.AutomaticEnv()

	// AutomaticEnv only answers Get; Unmarshal needs every key bound.
	for _, key := range settingKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}

	Current = s
	return &Current, nil
}
