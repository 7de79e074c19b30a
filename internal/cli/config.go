package cli

import (
	"fmt"
	"matrixTasks/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Показать итоговый конфиг (файл + .env + MATRIX_*)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("сериализация конфига: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
