package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchparty/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	roomLifetime = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_LIFETIME",
		flagKey:      "room-lifetime",
		defaultValue: 24 * time.Hour,
		usage:        "How long a room lives after creation",
	}
	sweepInterval = configVar[time.Duration]{
		envKey:       "SERVER_SWEEP_INTERVAL",
		flagKey:      "sweep-interval",
		defaultValue: time.Minute,
		usage:        "How often expired rooms are swept",
	}
	codeAttempts = configVar[int]{
		envKey:       "SERVER_CODE_ATTEMPTS",
		flagKey:      "code-attempts",
		defaultValue: 10,
		usage:        "Room code generation attempts before giving up",
	}
	chatMaxLength = configVar[int]{
		envKey:       "SERVER_CHAT_MAX_LENGTH",
		flagKey:      "chat-max-length",
		defaultValue: 1000,
		usage:        "Maximum chat message length in characters",
	}
	wsPongWait = configVar[time.Duration]{
		envKey:       "SERVER_WS_PONG_WAIT",
		flagKey:      "ws-pong-wait",
		defaultValue: 60 * time.Second,
		usage:        "Time allowed to read the next pong from a client",
	}
	wsSendBuffer = configVar[int]{
		envKey:       "SERVER_WS_SEND_BUFFER",
		flagKey:      "ws-send-buffer",
		defaultValue: 64,
		usage:        "Outbound messages buffered per connection",
	}
	wsReadLimit = configVar[int64]{
		envKey:       "SERVER_WS_READ_LIMIT",
		flagKey:      "ws-read-limit",
		defaultValue: 16384,
		usage:        "Maximum inbound websocket message size in bytes",
	}
	fanoutMode = configVar[string]{
		envKey:       "SERVER_FANOUT_MODE",
		flagKey:      "fanout-mode",
		defaultValue: app.FanoutModeLocal,
		usage:        "Broadcast fanout mode: local or redis",
	}
	callAPIKey = configVar[string]{
		envKey:       "CALL_API_KEY",
		flagKey:      "call-api-key",
		defaultValue: "",
		usage:        "Call provider api key",
	}
	callSecret = configVar[string]{
		envKey:       "CALL_SECRET",
		flagKey:      "call-secret",
		defaultValue: "",
		usage:        "Call provider secret",
	}
	callTokenTTL = configVar[time.Duration]{
		envKey:       "CALL_TOKEN_TTL",
		flagKey:      "call-token-ttl",
		defaultValue: 24 * time.Hour,
		usage:        "Call token lifetime",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
	redisDB = configVar[int]{
		envKey:       "REDIS_DB",
		flagKey:      "redis-db",
		defaultValue: 0,
		usage:        "Redis database",
	}
)

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.Duration(roomLifetime.flagKey, roomLifetime.defaultValue, roomLifetime.usage)
	pflag.Duration(sweepInterval.flagKey, sweepInterval.defaultValue, sweepInterval.usage)
	pflag.Int(codeAttempts.flagKey, codeAttempts.defaultValue, codeAttempts.usage)
	pflag.Int(chatMaxLength.flagKey, chatMaxLength.defaultValue, chatMaxLength.usage)
	pflag.Duration(wsPongWait.flagKey, wsPongWait.defaultValue, wsPongWait.usage)
	pflag.Int(wsSendBuffer.flagKey, wsSendBuffer.defaultValue, wsSendBuffer.usage)
	pflag.Int64(wsReadLimit.flagKey, wsReadLimit.defaultValue, wsReadLimit.usage)
	pflag.String(fanoutMode.flagKey, fanoutMode.defaultValue, fanoutMode.usage)
	pflag.String(callAPIKey.flagKey, callAPIKey.defaultValue, callAPIKey.usage)
	pflag.String(callSecret.flagKey, callSecret.defaultValue, callSecret.usage)
	pflag.Duration(callTokenTTL.flagKey, callTokenTTL.defaultValue, callTokenTTL.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Int(redisDB.flagKey, redisDB.defaultValue, redisDB.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	host.bind()
	port.bind()
	logLevel.bind()
	roomLifetime.bind()
	sweepInterval.bind()
	codeAttempts.bind()
	chatMaxLength.bind()
	wsPongWait.bind()
	wsSendBuffer.bind()
	wsReadLimit.bind()
	fanoutMode.bind()
	callAPIKey.bind()
	callSecret.bind()
	callTokenTTL.bind()
	redisHost.bind()
	redisPort.bind()
	redisPassword.bind()
	redisDB.bind()

	return &app.AppConfig{
		Host:          viper.GetString(host.flagKey),
		Port:          viper.GetInt(port.flagKey),
		LogLevel:      viper.GetString(logLevel.flagKey),
		RoomLifetime:  viper.GetDuration(roomLifetime.flagKey),
		SweepInterval: viper.GetDuration(sweepInterval.flagKey),
		CodeAttempts:  viper.GetInt(codeAttempts.flagKey),
		ChatMaxLength: viper.GetInt(chatMaxLength.flagKey),
		WSPongWait:    viper.GetDuration(wsPongWait.flagKey),
		WSSendBuffer:  viper.GetInt(wsSendBuffer.flagKey),
		WSReadLimit:   viper.GetInt64(wsReadLimit.flagKey),
		FanoutMode:    viper.GetString(fanoutMode.flagKey),
		CallAPIKey:    viper.GetString(callAPIKey.flagKey),
		CallSecret:    viper.GetString(callSecret.flagKey),
		CallTokenTTL:  viper.GetDuration(callTokenTTL.flagKey),
		RedisHost:     viper.GetString(redisHost.flagKey),
		RedisPort:     viper.GetInt(redisPort.flagKey),
		RedisPassword: viper.GetString(redisPassword.flagKey),
		RedisDB:       viper.GetInt(redisDB.flagKey),
	}
}

func main() {
	ctx := context.Background()

	// .env is optional, real environment wins
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
