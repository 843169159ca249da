package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis      Redis  `yaml:"redis"`
	Game       Game   `yaml:"game"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Game struct {
	PairCount   int           `yaml:"pair-count" env:"GAME_PAIR_COUNT" env-default:"8"`
	Columns     int           `yaml:"columns" env:"GAME_COLUMNS" env-default:"4"`
	Palette     []string      `yaml:"palette" env:"GAME_PALETTE" env-default:"aqua,lime,teal,blue,navy,yellow,orange,silver"`
	RevealDelay time.Duration `yaml:"reveal-delay" env:"GAME_REVEAL_DELAY" env-default:"500ms"`
	PlayerOne   string        `yaml:"player-one" env:"GAME_PLAYER_ONE" env-default:"Player One"`
	PlayerTwo   string        `yaml:"player-two" env:"GAME_PLAYER_TWO" env-default:"Player Two"`
	SnapshotTTL time.Duration `yaml:"snapshot-ttl" env:"GAME_SNAPSHOT_TTL" env-default:"1h"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load - reads the config file, then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
