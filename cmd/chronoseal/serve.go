package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chronoseal/capsule-go/internal/server"
)

var (
	serveAddr     string
	webhookURL    string
	webhookSecret string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the vault over HTTP",
	Long: `Starts an HTTP server exposing the capsule API plus Prometheus metrics
on /metrics. At every UTC midnight the server scans for capsules whose
unlock date has arrived and, when --webhook-url is set, POSTs a signed
notification for each one.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8475", "Listen address")
	serveCmd.Flags().StringVar(&webhookURL, "webhook-url", "", "Endpoint for unlock notifications")
	serveCmd.Flags().StringVar(&webhookSecret, "webhook-secret", "", "HMAC secret for notification signatures (also CHRONOSEAL_WEBHOOK_SECRET)")

	if err := viper.BindPFlag("webhook_secret", serveCmd.Flags().Lookup("webhook-secret")); err != nil {
		log.Printf("Failed to bind webhook-secret flag: %v", err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	logger := logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	srv := server.New(vault, server.Config{
		Addr:          serveAddr,
		WebhookURL:    webhookURL,
		WebhookSecret: viper.GetString("webhook_secret"),
		Logger:        logger,
	})

	// Serve until interrupted, then drain in-flight requests.
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		fmt.Printf("Received %s, shutting down...\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-errCh
}
