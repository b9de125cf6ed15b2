package main

import (
	"fmt"
	"time"

	"poll-chat/repositories"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=3000" validate:"min=1,max=65535"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	StoreDriver     string        `env:"STORE_DRIVER,default=badger" validate:"oneof=badger mongo postgres redis"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,default=./data/messages" validate:"required_if=StoreDriver badger"`
	MongoUser       string        `env:"MONGO_USER"`
	MongoPass       string        `env:"MONGO_PASS"`
	MongoHost       string        `env:"MONGO_HOST" validate:"required_if=StoreDriver mongo"`
	MongoPort       int           `env:"MONGO_PORT,default=27017"`
	MongoDatabase   string        `env:"MONGO_DATABASE" validate:"required_if=StoreDriver mongo"`
	DatabaseURL     string        `env:"DATABASE_URL" validate:"required_if=StoreDriver postgres"`
	RedisURL        string        `env:"REDIS_URL" validate:"required_if=StoreDriver redis"`
	CacheSize       int           `env:"CACHE_SIZE,default=128" validate:"min=0"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES,default=8192" validate:"min=1"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=500ms"`
	HeartbeatEvery  time.Duration `env:"HEARTBEAT_INTERVAL,default=15s" validate:"gt=0"`
	DebugPort       int           `env:"DEBUG_PORT,default=8081"`
}

func loadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Store() repositories.StoreConfig {
	return repositories.StoreConfig{
		Driver:         repositories.Driver(c.StoreDriver),
		BadgerFilepath: c.BadgerFilepath,
		MongoURI:       repositories.MongoURI(c.MongoUser, c.MongoPass, c.MongoHost, c.MongoPort, c.MongoDatabase),
		MongoDatabase:  c.MongoDatabase,
		DatabaseURL:    c.DatabaseURL,
		RedisURL:       c.RedisURL,
		CacheSize:      c.CacheSize,
	}
}
