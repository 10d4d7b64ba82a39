// Package analysis composes the dataset with the comparison, correlation,
// regression and enrichment engines behind one session object.
package analysis

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/correlate"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/enrich"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/group"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/plot"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/regress"
)

// Session holds one project dataset plus lazily constructed engines. Each
// engine is (re)built by its typed Set*Config call; the accessors return nil
// until then.
type Session struct {
	ds     *dataset.Dataset
	logger *zap.Logger

	comparator *group.Comparator
	correlator *correlate.Correlator
	regressor  *regress.Regressor
	enricher   *enrich.Enricher
	plotter    *plot.Plotter
}

// Open loads the project directory and returns a session over it. Table
// load failures are logged per file and do not abort the session.
func Open(dir string, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ds, err := dataset.Open(dir, logger)
	if err != nil {
		return nil, err
	}
	for _, res := range ds.LoadAll() {
		if res.Err != nil {
			logger.Warn("table skipped", zap.String("table", res.Name), zap.Error(res.Err))
		}
	}
	return &Session{ds: ds, logger: logger}, nil
}

// Dataset exposes the underlying project dataset.
func (s *Session) Dataset() *dataset.Dataset { return s.ds }

// SetGroupConfig builds (or rebuilds) the comparator with the given
// configuration and runs it.
func (s *Session) SetGroupConfig(cfg group.Config) error {
	if s.comparator == nil {
		c := group.New(s.ds, cfg, s.logger)
		if err := c.Run(); err != nil {
			return err
		}
		s.comparator = c
		return nil
	}
	return s.comparator.Update(cfg)
}

// SetCorrelateConfig builds (or rebuilds) the correlator and runs it.
func (s *Session) SetCorrelateConfig(cfg correlate.Config) error {
	if s.correlator == nil {
		c := correlate.New(s.ds, cfg, s.logger)
		if err := c.Run(); err != nil {
			return err
		}
		s.correlator = c
		return nil
	}
	return s.correlator.Update(cfg)
}

// SetRegressConfig builds (or rebuilds) the regressor and runs it.
func (s *Session) SetRegressConfig(cfg regress.Config) error {
	if s.regressor == nil {
		r := regress.New(s.ds, cfg, s.logger)
		if err := r.Run(); err != nil {
			return err
		}
		s.regressor = r
		return nil
	}
	return s.regressor.Update(cfg)
}

// Comparator returns the current comparator, or nil before SetGroupConfig.
func (s *Session) Comparator() *group.Comparator { return s.comparator }

// Correlator returns the current correlator, or nil before
// SetCorrelateConfig.
func (s *Session) Correlator() *correlate.Correlator { return s.correlator }

// Regressor returns the current regressor, or nil before SetRegressConfig.
func (s *Session) Regressor() *regress.Regressor { return s.regressor }

// Enricher returns the enrichment adapter, built on first use.
func (s *Session) Enricher() *enrich.Enricher {
	if s.enricher == nil {
		s.enricher = enrich.New(s.ds, s.logger)
	}
	return s.enricher
}

// Plotter returns the figure renderer, built on first use.
func (s *Session) Plotter() *plot.Plotter {
	if s.plotter == nil {
		s.plotter = plot.New(s.ds, s.logger)
	}
	return s.plotter
}

// Params renders the active engine configurations for inspection.
func (s *Session) Params() map[string]any {
	out := map[string]any{
		"project": s.ds.ProjectName(),
		"tables":  s.ds.Names(),
	}
	if s.comparator != nil {
		out["group"] = s.comparator.Config()
	}
	if s.correlator != nil {
		out["correlate"] = s.correlator.Config()
	}
	if s.regressor != nil {
		out["regress"] = s.regressor.Config()
	}
	return out
}

// Write forwards a result table to the dataset writer.
func (s *Session) Write(t *dataset.Table, name, format string) error {
	if t == nil {
		return fmt.Errorf("analysis: nil table for %q", name)
	}
	return s.ds.Write(t, name, format)
}
