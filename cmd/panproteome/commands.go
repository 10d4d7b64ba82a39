package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/correlate"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/decomp"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/enrich"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/group"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/regress"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the loaded project tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, logger, err := newSession()
		if err != nil {
			return err
		}
		defer logger.Sync()
		for _, name := range s.Dataset().Names() {
			t, _ := s.Dataset().Table(name)
			nr, nc := t.Shape()
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d x %d\n", name, nr, nc)
		}
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run the group comparison pipeline (config key: group)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, logger, err := newSession()
		if err != nil {
			return err
		}
		defer logger.Sync()

		var cfg group.Config
		if err := viper.UnmarshalKey("group", &cfg); err != nil {
			return fmt.Errorf("group config: %w", err)
		}
		if err := s.SetGroupConfig(cfg); err != nil {
			return err
		}
		c := s.Comparator()
		name := cfg.TableName + "_group"
		if err := s.Write(c.Table(), name, flagFormat); err != nil {
			return err
		}
		logger.Info("comparison written",
			zap.String("table", name),
			zap.Strings("groups", c.GroupValues()),
			zap.String("dividend", c.Dividend()))
		return nil
	},
}

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Run the correlation pipeline (config key: correlate)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, logger, err := newSession()
		if err != nil {
			return err
		}
		defer logger.Sync()

		var cfg correlate.Config
		if err := viper.UnmarshalKey("correlate", &cfg); err != nil {
			return fmt.Errorf("correlate config: %w", err)
		}
		if cfg.WriteOut == "" {
			cfg.WriteOut = flagFormat
		}
		if err := s.SetCorrelateConfig(cfg); err != nil {
			return err
		}
		c := s.Correlator()
		combined, err := c.ResultTable()
		if errors.Is(err, correlate.ErrMatrixOnly) {
			// Per-statistic matrices were already written by WriteOut.
			logger.Info("matrix-only result", zap.Strings("statistics", c.Statistics()))
			return nil
		}
		if err != nil {
			return err
		}
		name := cfg.Name1 + "_" + cfg.Name2 + "_combined"
		if err := s.Write(combined, name, flagFormat); err != nil {
			return err
		}
		logger.Info("correlation written", zap.String("table", name))
		return nil
	},
}

var regressCmd = &cobra.Command{
	Use:   "regress",
	Short: "Run the regression pipeline (config key: regress)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, logger, err := newSession()
		if err != nil {
			return err
		}
		defer logger.Sync()

		var cfg regress.Config
		if err := viper.UnmarshalKey("regress", &cfg); err != nil {
			return fmt.Errorf("regress config: %w", err)
		}
		if err := s.SetRegressConfig(cfg); err != nil {
			return err
		}
		r := s.Regressor()
		table, err := r.ResultTable()
		if err != nil {
			return err
		}
		name := r.Config().Type + "_regression"
		if err := s.Write(table, name, flagFormat); err != nil {
			return err
		}
		if cfg.ANOVA {
			anova, err := r.AnovaTable()
			if err != nil {
				return err
			}
			if err := s.Write(anova, name+"_anova", flagFormat); err != nil {
				return err
			}
		}
		logger.Info("regression written", zap.String("table", name))
		return nil
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run over-representation analysis (config key: enrich)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, logger, err := newSession()
		if err != nil {
			return err
		}
		defer logger.Sync()

		var cfg struct {
			Table      string
			Query      string
			GMT        string
			Background []string
			MinSize    int
			MaxSize    int
		}
		if err := viper.UnmarshalKey("enrich", &cfg); err != nil {
			return fmt.Errorf("enrich config: %w", err)
		}
		sets, err := enrich.ReadGMT(cfg.GMT)
		if err != nil {
			return err
		}
		result, err := s.Enricher().ORA(enrich.ORAConfig{
			Table:      cfg.Table,
			Query:      cfg.Query,
			Sets:       sets,
			Background: cfg.Background,
			MinSize:    cfg.MinSize,
			MaxSize:    cfg.MaxSize,
		})
		if err != nil {
			return err
		}
		name := cfg.Table + "_ora"
		if err := s.Write(result, name, flagFormat); err != nil {
			return err
		}
		logger.Info("enrichment written", zap.String("table", name))
		return nil
	},
}

var decomposeCmd = &cobra.Command{
	Use:   "decompose",
	Short: "Embed a table with PCA, t-SNE or UMAP (config key: decompose)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, logger, err := newSession()
		if err != nil {
			return err
		}
		defer logger.Sync()

		var cfg struct {
			Table  string
			Method string
			decomp.Config `mapstructure:",squash"`
		}
		if err := viper.UnmarshalKey("decompose", &cfg); err != nil {
			return fmt.Errorf("decompose config: %w", err)
		}
		t, err := s.Dataset().MustTable(cfg.Table)
		if err != nil {
			return err
		}
		var emb *decomp.Embedding
		switch cfg.Method {
		case "", "pca":
			emb, err = decomp.PCA(t, cfg.Config)
		case "tsne":
			emb, err = decomp.TSNE(t, cfg.Config)
		case "umap":
			emb, err = decomp.UMAP(t, cfg.Config)
		default:
			return fmt.Errorf("unknown embedding method %q", cfg.Method)
		}
		if err != nil {
			return err
		}
		if err := s.Write(emb.Table, emb.Table.Name, flagFormat); err != nil {
			return err
		}
		if len(emb.Explained) > 0 {
			logger.Info("explained variance", zap.Float64s("ratios", emb.Explained))
		}
		logger.Info("embedding written", zap.String("table", emb.Table.Name))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd, compareCmd, correlateCmd, regressCmd, enrichCmd, decomposeCmd)
}
