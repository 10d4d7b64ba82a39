// Command panproteome runs the exploratory analysis pipelines of a project
// directory from the command line: group comparison, correlation,
// regression, enrichment and dimensionality reduction.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/analysis"
)

var (
	flagProject string
	flagConfig  string
	flagVerbose bool
	flagFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "panproteome",
	Short:         "Exploratory statistics over a multi-omic project directory",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagConfig != "" {
			viper.SetConfigFile(flagConfig)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		}
		if flagProject == "" {
			flagProject = viper.GetString("project")
		}
		if flagProject == "" {
			return fmt.Errorf("a project directory is required (--project or config key)")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "project directory containing document/")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "out", "o", "csv", "output table format (csv, tsv, txt, parquet)")
}

// newLogger builds the process logger; verbose switches to development
// config with debug level.
func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newSession opens the project with a fresh logger.
func newSession() (*analysis.Session, *zap.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}
	s, err := analysis.Open(flagProject, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}
	return s, logger, nil
}
