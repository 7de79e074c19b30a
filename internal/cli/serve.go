package cli

import (
	"context"
	"matrixTasks/internal/app"
	"matrixTasks/internal/config"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "хост (перекрывает конфиг)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "порт (перекрывает конфиг)")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(afero.NewOsFs(), configPath)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = strconv.Itoa(servePort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, loader).Init(ctx)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
