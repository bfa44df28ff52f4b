package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/evaultlabs/evault-server/auth"
	"github.com/evaultlabs/evault-server/github"
	"github.com/evaultlabs/evault-server/internal/config"
	"github.com/evaultlabs/evault-server/server"
	"github.com/evaultlabs/evault-server/sessions"
	"github.com/evaultlabs/evault-server/users"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx := context.Background()

	sessionRepo, err := sessions.NewRedisRepo(ctx, c)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer sessionRepo.Close()
	log.Info().Str("addr", c.GetRedisAddr()).Msg("connected to redis")

	userRepo, err := users.NewPostgresRepo(ctx, c)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer userRepo.Close()
	log.Info().Msg("connected to postgres")

	githubAPI, err := github.New(c)
	if err != nil {
		return fmt.Errorf("creating github client: %w", err)
	}

	authService, err := auth.NewService(c, githubAPI, sessionRepo, userRepo)
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}

	srv, err := server.New(c, authService, sessionRepo, userRepo)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.AddHealthCheck("redis", sessionRepo.Ping)
	srv.AddHealthCheck("postgres", userRepo.Ping)

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
