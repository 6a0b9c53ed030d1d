package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/snaprace/internal/config"
	"github.com/kozaktomas/snaprace/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the search API server",
	Long: `Start the SnapRace HTTP API.
The server exposes search by bib number and search by selfie under /api/v1.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (defaults to WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (defaults to WEB_HOST or 0.0.0.0)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Require(config.EnvBibIndexTable, config.EnvCollectionPrefix); err != nil {
		return err
	}

	port, host := cfg.Web.Port, cfg.Web.Host
	if p := mustGetInt(cmd, "port"); p > 0 {
		port = p
	}
	if h := mustGetString(cmd, "host"); h != "" {
		host = h
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := web.NewServer(web.Services{Bib: a.bibSearcher(), Selfie: a.selfieSearcher()}, host, port, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	fmt.Printf("Starting SnapRace API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
