// Command dockftpd serves a rooted directory to authenticated clients
// over FTP. Configuration (bind address, filesystem root, user table) is
// loaded from a JSON file named by -c/--config.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/telebroad/dockftp/internal/config"
	"github.com/telebroad/dockftp/internal/ftp"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string

	root := &cobra.Command{
		Use:   "dockftpd",
		Short: "dockftpd serves a rooted directory over FTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "config.json", "path to the JSON configuration file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func serve(configPath string) error {
	logger := ftp.NewLogger(slog.LevelInfo)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return err
	}

	server := ftp.New(cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", "error", err)
			return err
		}
	case <-stop:
		logger.Info("shutting down")
		_ = server.Close()
	}
	return nil
}
