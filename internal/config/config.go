package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/rocketscienceinc/versus-backend/internal/entity"
)

type Config struct {
	LogLevel    string      `yaml:"log-level"   env:"LOG_LEVEL"   env-default:"info"`
	Log         Log         `yaml:"log"`
	HTTPPort    string      `yaml:"http-port"   env:"HTTP_PORT"   env-default:"9090"`
	SocketPort  string      `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis       Redis       `yaml:"redis"`
	Room        Room        `yaml:"room"`
	Matchmaking Matchmaking `yaml:"matchmaking"`
	Games       Games       `yaml:"games"`
}

// Log - optional rotating log file next to stdout.
type Log struct {
	File       string `yaml:"file"        env:"LOG_FILE"`
	MaxSize    int    `yaml:"max-size"    env-default:"100"`
	MaxBackups int    `yaml:"max-backups" env-default:"3"`
	MaxAge     int    `yaml:"max-age"     env-default:"7"`
}

type Redis struct {
	Enabled  bool          `yaml:"enabled"  env:"REDIS_ENABLED"  env-default:"false"`
	Host     string        `yaml:"host"     env:"REDIS_HOST"     env-default:"localhost"`
	Port     string        `yaml:"port"     env:"REDIS_PORT"     env-default:"6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
	CodeTTL  time.Duration `yaml:"code-ttl" env:"REDIS_CODE_TTL" env-default:"30m"`
}

type Room struct {
	CountdownTicks    int           `yaml:"countdown-ticks"    env-default:"3"`
	CountdownInterval time.Duration `yaml:"countdown-interval" env-default:"1s"`
	IdleTTL           time.Duration `yaml:"idle-ttl"           env-default:"5m"`
	SweepInterval     time.Duration `yaml:"sweep-interval"     env-default:"1m"`
	MaxCodeAttempts   int           `yaml:"max-code-attempts"  env-default:"10"`
}

type Matchmaking struct {
	StaleAfter time.Duration `yaml:"stale-after" env-default:"30s"`
	ResultTTL  time.Duration `yaml:"result-ttl"  env-default:"30s"`
}

// Games - per game default settings. Unset fields fall back to the built-in defaults.
type Games struct {
	Tetris    entity.Settings `yaml:"tetris"`
	Typing    entity.Settings `yaml:"typing"`
	TileMerge entity.Settings `yaml:"2048"`
	Snake     entity.Settings `yaml:"snake"`
}

// builtin - defaults used when the config leaves a field out.
var builtin = map[entity.GameType]entity.Settings{
	entity.GameTetris: {},
	entity.GameTyping: {TimeLimitSec: 120, WordCount: 30},
	entity.Game2048:   {TimeLimitSec: 180, TargetTile: 2048},
	entity.GameSnake:  {TimeLimitSec: 120, GridSize: 20},
}

// Defaults - the effective default settings of every game.
func (that *Games) Defaults() map[entity.GameType]entity.Settings {
	configured := map[entity.GameType]entity.Settings{
		entity.GameTetris: that.Tetris,
		entity.GameTyping: that.Typing,
		entity.Game2048:   that.TileMerge,
		entity.GameSnake:  that.Snake,
	}

	defaults := make(map[entity.GameType]entity.Settings, len(builtin))
	for gameType, settings := range configured {
		defaults[gameType] = settings.WithDefaults(builtin[gameType])
	}

	return defaults
}

// Load - reads path, falling back to the environment alone when the file is missing.
func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to load config from env: %w", err)
		}
	default:
		return nil, fmt.Errorf("unable to stat config file: %w", err)
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
