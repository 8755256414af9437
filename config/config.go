package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var validate = validator.New()

type Config struct {
	// Port is the port number to listen on. The default is 8080.
	Port int `validate:"required,min=1,max=65535"`
	// Hostname is the hostname to listen on. The default is 0.0.0.0.
	Hostname string `validate:"required"`
	Auth     struct {
		// Secret is the secret key used to verify identity tokens.
		// It must be a base64 encoded string; the default is a random
		// 32 byte key.
		Secret Base64Encoded `validate:"required"`
		// TokenExp is how long issued identity tokens stay valid.
		TokenExp time.Duration `mapstructure:"token_exp" validate:"required"`
	}
	SQLite struct {
		// File is the path to the SQLite database file.
		File string `validate:"required"`
		// Migrations is the path to the directory that the migration files reside.
		Migrations string `validate:"required"`
	}
	Relay struct {
		// PersistTimeout bounds how long a send waits on the message
		// store before it is reported failed to the sender.
		PersistTimeout time.Duration `mapstructure:"persist_timeout" validate:"required"`
		// TypingTTL is how long a typing entry survives without a
		// refresh. Zero disables server-side typing expiry.
		TypingTTL time.Duration `mapstructure:"typing_ttl"`
	}
	// AllowedOrigins is a list of origins that are allowed to connect to the server.
	// The default is ["*"].
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Base64Encoded []byte

func (b *Base64Encoded) UnmarshalText(text []byte) error {
	dec, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("base64 decode: %w", err)
	}
	*b = dec
	return nil
}

// Load loads the configuration from a .env file (if present), environment
// variables and an optional config.yaml, in increasing order of precedence
// of the environment.
func Load() (*Config, error) {
	// .env only seeds the process environment; a missing file is fine
	godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("hostname", "0.0.0.0")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	v.SetDefault("auth.secret", base64.StdEncoding.EncodeToString(secret))
	v.SetDefault("auth.token_exp", time.Hour)
	v.SetDefault("sqlite.file", "./chatwire.db")
	v.SetDefault("sqlite.migrations", "./migrations")
	v.SetDefault("relay.persist_timeout", 5*time.Second)
	v.SetDefault("relay.typing_ttl", 10*time.Second)
	v.SetDefault("allowed_origins", "*")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(",")),
		),
	); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	return validate.Struct(c)
}

// Addr returns the listen address of the server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}
