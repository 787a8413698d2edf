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
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Game struct {
	AIBoardSize   int           `yaml:"ai-board-size" env:"AI_BOARD_SIZE" env-default:"3"`
	MinBoardSize  int           `yaml:"min-board-size" env:"MIN_BOARD_SIZE" env-default:"3"`
	MaxBoardSize  int           `yaml:"max-board-size" env:"MAX_BOARD_SIZE" env-default:"5"`
	SessionTTL    time.Duration `yaml:"session-ttl" env:"SESSION_TTL" env-default:"24h"`
	ThinkDelayMin time.Duration `yaml:"think-delay-min" env:"THINK_DELAY_MIN" env-default:"400ms"`
	ThinkDelayMax time.Duration `yaml:"think-delay-max" env:"THINK_DELAY_MAX" env-default:"700ms"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
