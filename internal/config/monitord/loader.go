package monitord

import (
	"strings"

	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}

	v.SetDefault("app.name", "monitord")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "0.1.0")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.dir", "")

	// Empty DSN selects the in-memory store (local dev, tests).
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 2)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.max_conn_idle_time", "10m")
	v.SetDefault("db.health_check_period", "30s")
	v.SetDefault("db.query_timeout", "2s")

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "5s")

	v.SetDefault("probe.timeout", "10s")
	v.SetDefault("probe.user_agent", "deploywatch/1.0")
	v.SetDefault("probe.follow_redirects", true)
	v.SetDefault("probe.verify_tls", true)

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.schedule", "@every 1m")
	v.SetDefault("sweep.concurrency", 8)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka.topic", "deploywatch.health.changed")

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "monitord")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
