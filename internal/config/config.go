package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"p2pong/internal/pong"
)

var Config Configuration

type Configuration struct {
	LogLevel int    `json:"logLevel"`
	LogFile  string `json:"logFile"`

	LobbyAddr     string `json:"lobbyAddr"`
	LobbyHTTPAddr string `json:"lobbyHttpAddr"`
	Transport     string `json:"transport"`
	Codec         string `json:"codec"`

	RedisURL       string `json:"redisUrl"`
	RoomTTLSeconds int    `json:"roomTtlSeconds"`

	SettleMillis int `json:"settleMillis"`
	FPS          int `json:"fps"`

	// Both peers must run with the same game settings.
	Game pong.Settings `json:"game"`
}

func Default() Configuration {
	return Configuration{
		LogLevel:       int(slog.LevelInfo),
		LogFile:        "pong.log",
		LobbyAddr:      "127.0.0.1:12345",
		LobbyHTTPAddr:  "127.0.0.1:8080",
		Transport:      "tcp",
		Codec:          "proto",
		RoomTTLSeconds: 3600,
		SettleMillis:   1000,
		FPS:            60,
		Game:           pong.DefaultSettings(),
	}
}

func (c Configuration) SettleDelay() time.Duration {
	return time.Duration(c.SettleMillis) * time.Millisecond
}

func (c Configuration) RoomTTL() time.Duration {
	return time.Duration(c.RoomTTLSeconds) * time.Second
}

// LoadConfig reads path (config.json when empty) into Config. Missing keys
// keep their defaults, then .env and the environment override them.
func LoadConfig(path string) {
	Config = Load(path)
}

func Load(path string) Configuration {
	var c = Default()

	if path == "" {
		path = "config.json"
	}
	cf, err := os.ReadFile(path)
	if err != nil {
		slog.Info("failed to open config at path provided, using default config instead", slog.String("path", path))
	} else if err := json.Unmarshal(cf, &c); err != nil {
		slog.Info("failed to read configuration, using default config instead...", slog.Any("error", err))
		c = Default()
	}

	godotenv.Load()

	c.LogLevel = getEnvInt("PONG_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("PONG_LOG_FILE", c.LogFile)
	c.LobbyAddr = getEnv("PONG_LOBBY_ADDR", c.LobbyAddr)
	c.LobbyHTTPAddr = getEnv("PONG_LOBBY_HTTP_ADDR", c.LobbyHTTPAddr)
	c.Transport = getEnv("PONG_TRANSPORT", c.Transport)
	c.Codec = getEnv("PONG_CODEC", c.Codec)
	c.RedisURL = getEnv("PONG_REDIS_URL", c.RedisURL)
	c.RoomTTLSeconds = getEnvInt("PONG_ROOM_TTL_SECONDS", c.RoomTTLSeconds)
	c.SettleMillis = getEnvInt("PONG_SETTLE_MILLIS", c.SettleMillis)
	c.FPS = getEnvInt("PONG_FPS", c.FPS)

	return c
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
		slog.Info("ignoring non-integer environment value", slog.String("key", key))
	}
	return defaultValue
}
