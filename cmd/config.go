package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=5000"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	UploadsDir           string        `env:"UPLOADS_DIR,default=uploads"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=168h"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
}
