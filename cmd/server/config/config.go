package config

import (
	"fmt"
	"time"

	drive "github.com/goliatone/go-drive"
)

// BaseConfig is the root application configuration. Values load from
// config files and environment variables through the config container.
type BaseConfig struct {
	Name        string       `json:"name" koanf:"name"`
	Env         string       `json:"env" koanf:"env"`
	Server      Server       `json:"server" koanf:"server"`
	Persistence Persistence  `json:"persistence" koanf:"persistence"`
	Auth        drive.Config `json:"auth" koanf:"auth"`
}

func (a BaseConfig) Validate() error {
	return a.Auth.Validate()
}

func (a BaseConfig) GetServer() Server {
	return a.Server
}

func (a BaseConfig) GetPersistence() Persistence {
	return a.Persistence
}

func (a BaseConfig) GetAuth() drive.Config {
	return a.Auth
}

// Server holds the HTTP listener settings
type Server struct {
	Addr string `json:"addr" koanf:"addr"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":8080"
	}
	return s.Addr
}

// Persistence holds the database settings
type Persistence struct {
	Debug                 bool   `json:"debug" koanf:"debug"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file::memory:?cache=shared"
	}
	return p.DSN
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}
