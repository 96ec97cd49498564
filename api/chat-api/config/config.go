// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package config

import (
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/acasochat/acaso/pkg/configs"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type AuthConfig struct {
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"required"`
	// when set, signup never yields a session and the service falls back
	// to an immediate login attempt
	RequireEmailConfirmation bool `mapstructure:"require_email_confirmation"`
}

type PresenceConfig struct {
	StaleAfter    time.Duration `mapstructure:"stale_after" validate:"required"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"required"`
	MatchBatch    int           `mapstructure:"match_batch" validate:"required,min=1"`
}

type SignalingConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval" validate:"required"`
	PeerTTL        time.Duration `mapstructure:"peer_ttl" validate:"required"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// Application config structure
type AppConfig struct {
	Name           string                 `mapstructure:"service_name" validate:"required"`
	Version        string                 `mapstructure:"version" validate:"required"`
	Secret         string                 `mapstructure:"secret" validate:"required,min=16"`
	Env            string                 `mapstructure:"env" validate:"required"`
	Host           string                 `mapstructure:"host" validate:"required"`
	Port           int                    `mapstructure:"port" validate:"required"`
	LogLevel       string                 `mapstructure:"log_level" validate:"required"`
	LogPath        string                 `mapstructure:"log_path"`
	PostgresConfig configs.PostgresConfig `mapstructure:"postgres" validate:"required"`
	RedisConfig    configs.RedisConfig    `mapstructure:"redis" validate:"required"`

	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Presence  PresenceConfig  `mapstructure:"presence" validate:"required"`
	Signaling SignalingConfig `mapstructure:"signaling" validate:"required"`
	CORS      []string        `mapstructure:"cors_origins"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil {
		log.Printf("config file not readable (%v), reading from env variables.", err)
	}
	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// keeping watch on https://github.com/spf13/viper/issues/188
	v.SetDefault("SERVICE_NAME", "chat-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("SECRET", "")
	v.SetDefault("ENV", "development")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")
	v.SetDefault("CORS_ORIGINS", "*")

	v.SetDefault("POSTGRES__DRIVER", "postgres")
	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "acaso")
	v.SetDefault("POSTGRES__AUTH__USER", "acaso")
	v.SetDefault("POSTGRES__AUTH__PASSWORD", "")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("POSTGRES__MAX_IDEAL_CONNECTION", 10)
	v.SetDefault("POSTGRES__SSL_MODE", "disable")

	v.SetDefault("REDIS__HOST", "localhost")
	v.SetDefault("REDIS__PORT", 6379)
	v.SetDefault("REDIS__DB", 0)
	v.SetDefault("REDIS__AUTH__USER", "")
	v.SetDefault("REDIS__AUTH__PASSWORD", "")
	v.SetDefault("REDIS__MAX_CONNECTION", 20)

	v.SetDefault("AUTH__TOKEN_TTL", "168h")
	v.SetDefault("AUTH__REQUIRE_EMAIL_CONFIRMATION", false)

	v.SetDefault("PRESENCE__STALE_AFTER", "2m")
	v.SetDefault("PRESENCE__SWEEP_INTERVAL", "30s")
	v.SetDefault("PRESENCE__MATCH_BATCH", 20)

	v.SetDefault("SIGNALING__PING_INTERVAL", "20s")
	v.SetDefault("SIGNALING__PEER_TTL", "60s")
	v.SetDefault("SIGNALING__ALLOWED_ORIGINS", "*")
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}

func (cfg *AppConfig) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}
