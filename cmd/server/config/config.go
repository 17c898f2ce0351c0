package config

import (
	"time"
)

// BaseConfig is the root configuration container loaded by go-config from
// defaults, config files, and environment overrides.
type BaseConfig struct {
	Server      Server      `json:"server"`
	Auth        Auth        `json:"auth"`
	Persistence Persistence `json:"persistence"`
}

func (a BaseConfig) Validate() error {
	return nil
}

func (a *BaseConfig) GetServer() Server {
	return a.Server
}

func (a *BaseConfig) GetAuth() Auth {
	return a.Auth
}

func (a *BaseConfig) GetPersistence() Persistence {
	return a.Persistence
}

type Server struct {
	Address string `json:"address"`
	Debug   bool   `json:"debug"`
}

func (s Server) GetAddress() string {
	if s.Address == "" {
		return ":8080"
	}
	return s.Address
}

func (s Server) GetDebug() bool {
	return s.Debug
}

// Auth carries the token issuing options. TTLs are expressed in hours.
type Auth struct {
	SigningKey      string   `json:"signing_key"`
	Issuer          string   `json:"issuer"`
	Audience        []string `json:"audience"`
	AccessTokenTTL  int      `json:"access_token_ttl"`
	RefreshTokenTTL int      `json:"refresh_token_ttl"`
	ContextKey      string   `json:"context_key"`
	TokenLookup     string   `json:"token_lookup"`
	AuthScheme      string   `json:"auth_scheme"`
}

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetIssuer() string {
	if a.Issuer == "" {
		return "go-users"
	}
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	if len(a.Audience) == 0 {
		return []string{"go-users"}
	}
	return a.Audience
}

func (a Auth) GetAccessTokenTTL() int {
	if a.AccessTokenTTL == 0 {
		return 1
	}
	return a.AccessTokenTTL
}

func (a Auth) GetRefreshTokenTTL() int {
	if a.RefreshTokenTTL == 0 {
		return 24 * 30
	}
	return a.RefreshTokenTTL
}

func (a Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "session"
	}
	return a.ContextKey
}

func (a Auth) GetTokenLookup() string {
	if a.TokenLookup == "" {
		return "header:Authorization"
	}
	return a.TokenLookup
}

func (a Auth) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}

type Persistence struct {
	Driver                string `json:"driver"`
	DSN                   string `json:"dsn"`
	Debug                 bool   `json:"debug"`
	PingTimeoutExpression string `json:"ping_timeout"`
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file::memory:?cache=shared"
	}
	return p.DSN
}

func (p Persistence) GetServer() string {
	return p.GetDSN()
}

func (p Persistence) GetOtelIdentifier() string {
	return ""
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}

	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		return 5 * time.Second
	}
	return dur
}
