package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	app "github.com/rocketscienceinc/versus-backend/internal"
	"github.com/rocketscienceinc/versus-backend/internal/config"
	"github.com/rocketscienceinc/versus-backend/internal/logger"
)

// main - is the entry point of the application. It initializes the configuration, logger, and runs the application.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := initConfig()
	log, cleanup := initLogger(conf)
	defer cleanup()

	slog.SetDefault(log)

	if err := app.RunApp(log, conf); err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

// initialize config.
func initConfig() *config.Config {
	baseDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current directory: %w", err))
	}

	return config.MustLoad(filepath.Join(baseDir, "./config.yml"))
}

// initialize logger.
func initLogger(conf *config.Config) (*slog.Logger, func()) {
	log, cleanup, err := logger.New(logger.Options{
		Level:      conf.LogLevel,
		File:       conf.Log.File,
		MaxSize:    conf.Log.MaxSize,
		MaxBackups: conf.Log.MaxBackups,
		MaxAge:     conf.Log.MaxAge,
	})
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}

	return log, cleanup
}
