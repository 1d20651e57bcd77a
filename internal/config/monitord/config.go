package monitord

import (
	"time"

	"github.com/deploywatch/deploywatch/internal/obs"
	kafkainfra "github.com/deploywatch/deploywatch/internal/repository/kafka"
	pginfra "github.com/deploywatch/deploywatch/internal/repository/postgres"
	"github.com/deploywatch/deploywatch/internal/services/probe"
	"github.com/deploywatch/deploywatch/internal/services/sweeper"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Dir    string `mapstructure:"dir"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Auth struct {
	Tokens []string `mapstructure:"tokens"`
}

type Config struct {
	App    App               `mapstructure:"app"`
	Log    Log               `mapstructure:"log"`
	DB     pginfra.Config    `mapstructure:"db"`
	Server Server            `mapstructure:"server"`
	Auth   Auth              `mapstructure:"auth"`
	Probe  probe.Config      `mapstructure:"probe"`
	Sweep  sweeper.Config    `mapstructure:"sweep"`
	Kafka  kafkainfra.Config `mapstructure:"kafka"`
	OTEL   obs.OTELConfig    `mapstructure:"otel"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		Dir:    c.Log.Dir,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}
