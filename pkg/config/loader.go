package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

// Load populates the provided configuration struct from environment
// variables based on `env` field tags. The default .env file is loaded once
// per process before the first parse; a missing .env file is not an error.
//
// Example:
//
//	type Config struct {
//		APIBaseURL string `env:"NOTIFY_API_BASE_URL,required"`
//		Timeout    time.Duration `env:"NOTIFY_HTTP_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvLoaded.Do(func() {
		// The .env file might not exist and that's ok.
		_ = godotenv.Load()
	})

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Useful for configurations required for the application to start.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
