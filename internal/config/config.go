package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DB      DBConfig    `mapstructure:"db"`
	JWT     JWTConfig   `mapstructure:"jwt"`
	Auth    AuthConfig  `mapstructure:"auth"`
	OAuth   OAuthConfig `mapstructure:"oauth"`
	Admin   AdminConfig `mapstructure:"admin"`
	AppHost string      `mapstructure:"host"`
}

type DBConfig struct {
	Source string `mapstructure:"source"`
}

type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpiryMinutes int    `mapstructure:"expiry_minutes"`
}

func (c JWTConfig) Expiry() time.Duration {
	if c.ExpiryMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

// AuthConfig selects how much the server trusts claims embedded in a token.
// With RecheckClaims enabled, role and quota are re-read from the database on
// every request instead of using the snapshot captured at login.
type AuthConfig struct {
	RecheckClaims bool `mapstructure:"recheck_claims"`
}

type OAuthConfig struct {
	Providers map[string]OAuthProvider `mapstructure:"providers"`
}

type OAuthProvider struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	UserInfoURL  string   `mapstructure:"userinfo_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// AdminConfig seeds the first admin account at startup. No admin is created
// when Email is empty.
type AdminConfig struct {
	Email string `mapstructure:"email"`
	Quota int64  `mapstructure:"quota"`
}

func Load() (*Config, error) {
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/configs")
	viper.SetConfigName("settings")
	viper.SetConfigType("yml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
