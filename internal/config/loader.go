package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"

	"crm-api/internal/db"
)

// Server holds the HTTP-facing settings.
type Server struct {
	Addr           string
	AllowedOrigins []string
	MigrationsPath string
	// Timezone is the reference zone for calendar-day filter operators
	// (today, past_n_days, ...). Empty means the process-local zone.
	Timezone string
}

// Config is the full application configuration.
type Config struct {
	Database db.Config
	Server   Server
}

// DefaultServer returns the server settings used when nothing is configured.
func DefaultServer() Server {
	return Server{
		Addr:           ":8080",
		AllowedOrigins: []string{"http://localhost:5173"},
		MigrationsPath: "migrations",
	}
}

// Load reads config.yaml from configPath, falling back to defaults plus
// environment overrides (CRM_DATABASE_HOST, CRM_SERVER_ADDR, ...).
func Load(configPath string) (Config, error) {
	cfg := Config{
		Database: db.DefaultConfig(),
		Server:   DefaultServer(),
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("server.timezone")

	if err := v.ReadInConfig(); err != nil {
		log.Println("[config] no config.yaml found, using defaults and env vars")
	} else {
		log.Printf("[config] loaded %s", v.ConfigFileUsed())
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("server.migrations_path") {
		cfg.Server.MigrationsPath = v.GetString("server.migrations_path")
	}
	if v.IsSet("server.timezone") {
		cfg.Server.Timezone = v.GetString("server.timezone")
	}

	return cfg, nil
}
