package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host              string        `env:"HOST"`
	Port              int           `env:"PORT,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,required=true"`
	SearchPageSize    int           `env:"SEARCH_PAGE_SIZE"`
	EchoToSender      bool          `env:"ECHO_TO_SENDER"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"`
	DebugPort         int           `env:"DEBUG_PORT"`
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
