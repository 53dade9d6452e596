package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/huruftech/assabil-sync/internal/server"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "assabil-sync",
	Short:   "Darb Assabil order synchronization bridge",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook and operator HTTP bridge",
	RunE:  runServe,
}

var retryCmd = &cobra.Command{
	Use:   "retry ORDER_ID [ORDER_ID...]",
	Short: "Re-submit failed orders through a running bridge",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRetry,
}

var retryAddr string

func init() {
	retryCmd.Flags().StringVar(&retryAddr, "addr", "http://localhost:8080", "Base URL of the running bridge")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(retryCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	svc, coordinator := initSyncService(cfg, logger)

	logger.Info("Starting Darb Assabil sync bridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("served_country", cfg.ServedCountry),
	)

	srv := server.New(server.Config{
		Port:                   cfg.Port,
		WebhookSignatureHeader: cfg.WebhookSignatureHeader,
	}, svc, coordinator, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// runRetry triggers a bulk retry against a running bridge so operators
// can recover failed orders without the host UI.
func runRetry(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(map[string][]string{"orderIds": args})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
		retryAddr+"/orders/retry", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling bridge: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "retried %d orders: %d succeeded, %d failed\n",
		len(args), result.Succeeded, result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%d orders failed", result.Failed)
	}
	return nil
}
