package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string  `yaml:"socket-port" env:"SOCKET_PORT" env-default:"7777"`
	// Store is "redis" or "memory", the latter keeps sessions inside this process only.
	Store      string  `yaml:"store" env:"STORE" env-default:"redis"`
	Redis      Redis   `yaml:"redis" env-prefix:"REDIS_"`
	Session    Session `yaml:"session" env-prefix:"SESSION_"`
}

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

var ErrUnknownStore = errors.New("unknown session store")

type Redis struct {
	Host     string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"PORT" env-default:"6379"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB" env-default:"0"`
}

type Session struct {
	KeyPrefix     string        `yaml:"key-prefix" env:"KEY_PREFIX" env-default:"game:"`
	ChannelPrefix string        `yaml:"channel-prefix" env:"CHANNEL_PREFIX" env-default:"game-updates:"`
	ClaimRetries  int           `yaml:"claim-retries" env:"CLAIM_RETRIES" env-default:"3"`
	WriteTimeout  time.Duration `yaml:"write-timeout" env:"WRITE_TIMEOUT" env-default:"5s"`
	// TTL of an idle session document, zero keeps documents forever.
	TTL time.Duration `yaml:"ttl" env:"TTL" env-default:"24h"`
}

// MustLoad - load all configurations in config.yml file, environment variables take precedence.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if config.Store != StoreRedis && config.Store != StoreMemory {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, config.Store)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" || that.Port == "" {
		return ""
	}

	return net.JoinHostPort(that.Host, that.Port)
}
