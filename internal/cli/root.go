// Package cli - команды matrix на cobra: serve, migrate, config.
package cli

import (
	"fmt"
	"matrixTasks/internal/config"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Matrix - задачи по матрице Эйзенхауэра с трекингом времени",
	Long: `Matrix хранит задачи по четырём квадрантам, считает потраченное время
и ведёт помодоро-сессии. Сервер отдаёт JSON API для веб-клиента.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "путь к config.yml")
}

// Execute вызывается из main
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		os.Exit(1)
	}
}
