// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot     BotConfig     `mapstructure:"bot"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Store   StoreConfig   `mapstructure:"store"`
	Games   GamesConfig   `mapstructure:"games"`
	Persist PersistConfig `mapstructure:"persist"`
}

// BotConfig holds chat transport configuration.
type BotConfig struct {
	Token        string  `mapstructure:"token"`
	GamesChannel int64   `mapstructure:"games_channel"`
	Whitelist    []int64 `mapstructure:"whitelist"`
}

// AdminConfig holds the administrator allow-list.
// Admin identities bypass funding checks and unlock the admin commands.
type AdminConfig struct {
	Names []string `mapstructure:"names"`
}

// LedgerConfig holds funding policy parameters.
type LedgerConfig struct {
	DailyCap   int64   `mapstructure:"daily_cap"`
	MinPrize   int64   `mapstructure:"min_prize"`
	DonorShare float64 `mapstructure:"donor_share"`
}

// StoreConfig selects and configures the ledger snapshot store.
// Backend is either "file" or "postgres".
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"`
	FilePath string         `mapstructure:"file_path"`
	Database DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	Raffle RaffleConfig `mapstructure:"raffle"`
	Decoy  DecoyConfig  `mapstructure:"decoy"`
}

// RaffleConfig holds raffle game configuration.
type RaffleConfig struct {
	Duration    time.Duration `mapstructure:"duration"`
	DrawBuffer  time.Duration `mapstructure:"draw_buffer"`
	TicketSlots int           `mapstructure:"ticket_slots"`
	TicketPrice int64         `mapstructure:"ticket_price"`
}

// DecoyConfig holds Decoy's Dilemma configuration.
type DecoyConfig struct {
	EntryWindow  time.Duration `mapstructure:"entry_window"`
	AnswerWindow time.Duration `mapstructure:"answer_window"`
	VoteWindow   time.Duration `mapstructure:"vote_window"`
	PhaseBuffer  time.Duration `mapstructure:"phase_buffer"`
	MinPlayers   int           `mapstructure:"min_players"`
	MaxAnswerLen int           `mapstructure:"max_answer_len"`
	TicketSlots  int           `mapstructure:"ticket_slots"`
}

// PersistConfig holds periodic persistence configuration.
type PersistConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, STORE_BACKEND, STORE_DATABASE_HOST.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
// Funding and timing defaults are the values the games have always run with.
func setDefaults(v *viper.Viper) {
	// The two historical operator identities stay recognized until a
	// deployment provides its own list.
	v.SetDefault("admin.names", []string{"ggar", "3118267"})

	v.SetDefault("ledger.daily_cap", 300000)
	v.SetDefault("ledger.min_prize", 50000)
	v.SetDefault("ledger.donor_share", 0.75)

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.file_path", "data/ledger.json")
	v.SetDefault("store.database.host", "localhost")
	v.SetDefault("store.database.port", 5432)
	v.SetDefault("store.database.user", "gamebot")
	v.SetDefault("store.database.name", "gamebot")
	v.SetDefault("store.database.pool_size", 10)
	v.SetDefault("store.database.connect_timeout", "10s")
	v.SetDefault("store.database.max_conn_lifetime", "1h")
	v.SetDefault("store.database.max_conn_idle_time", "30m")

	v.SetDefault("games.raffle.duration", "5m")
	v.SetDefault("games.raffle.draw_buffer", "5s")
	v.SetDefault("games.raffle.ticket_slots", 10)
	v.SetDefault("games.raffle.ticket_price", 100)

	v.SetDefault("games.decoy.entry_window", "5m")
	v.SetDefault("games.decoy.answer_window", "2m")
	v.SetDefault("games.decoy.vote_window", "2m")
	v.SetDefault("games.decoy.phase_buffer", "5s")
	v.SetDefault("games.decoy.min_players", 3)
	v.SetDefault("games.decoy.max_answer_len", 200)
	v.SetDefault("games.decoy.ticket_slots", 30)

	v.SetDefault("persist.interval", "60s")
}

// IsAdmin checks if a sender name is in the admin list.
// Matching is case-insensitive, as chat names are.
func (c *Config) IsAdmin(name string) bool {
	for _, n := range c.Admin.Names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed.
	if len(c.Bot.Whitelist) == 0 {
		return true
	}
	for _, id := range c.Bot.Whitelist {
		if id == chatID {
			return true
		}
	}
	return false
}
