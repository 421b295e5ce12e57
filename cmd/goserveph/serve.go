package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goserveph/internal/server"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger, err := newLogger(config)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, config, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	intake, err := b.intake(logger)
	if err != nil {
		return err
	}

	var (
		cognitoClient server.CognitoAPI
		jwkCache      *jwk.Cache
		jwksURL       string
	)

	if config.StaffAuthEnabled() {
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}
		cognitoClient = cognitoidentityprovider.NewFromConfig(awsConfig)

		jwkCache, err = jwk.NewCache(ctx, httprc.NewClient())
		if err != nil {
			return fmt.Errorf("failed to initialize jwk cache: %w", err)
		}

		jwksURL = fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

		err = jwkCache.Register(ctx, jwksURL)
		if err != nil {
			return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
		}
	}

	srv := server.New(
		config,
		logger,
		intake,
		b.workflow(logger),
		b.files,
		cognitoClient,
		jwkCache,
		jwksURL,
	)

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
