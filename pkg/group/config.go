package group

import "fmt"

// Config is the typed parameter bundle of the comparator. Updating it goes
// through Comparator.Update, which re-validates and re-runs the pipeline.
type Config struct {
	// GroupName lists the categorical label column(s) of the grouping table;
	// multi-column labels are underscore-joined into one group key per sample.
	GroupName []string
	// TableName is the numeric target table (features x samples).
	TableName string
	// FileType is the grouping table name, "category" by default.
	FileType string
	// Thresh controls both sparse-row dropping and the retained-feature mask:
	// at most 1 it is the minimum non-missing fraction, above 1 a count.
	Thresh float64
	// PartElements optionally restricts each label column to a value subset,
	// aligned with GroupName. A value not observed in the column is an error.
	PartElements [][]string
	// ParamMethod picks the summary statistic feeding the ratio column:
	// mean (default), median, std, cv, count, percentage.
	ParamMethod string
	// StatisticMethod optionally log-transforms values before testing (log2,
	// log10) when every value is strictly positive; anything else is a no-op.
	StatisticMethod string
	// EqualVar selects the pooled-variance Student t-test; false means Welch.
	EqualVar bool
	// FDRMethod is the multiple-testing correction method (stats.Adjust...).
	FDRMethod string
	// Dividend designates the numerator/minuend group of the ratio column.
	// When unset the second discovered group takes the role, matching the
	// historical orientation.
	Dividend string
	// Palette maps group key to display color; derived when empty.
	Palette map[string]string
}

// withDefaults fills the zero values that have conventional defaults.
func (c Config) withDefaults() Config {
	if c.FileType == "" {
		c.FileType = "category"
	}
	if c.Thresh == 0 {
		c.Thresh = 1e-5
	}
	if c.ParamMethod == "" {
		c.ParamMethod = "mean"
	}
	if c.StatisticMethod == "" {
		c.StatisticMethod = "log2"
	}
	if c.FDRMethod == "" {
		c.FDRMethod = "i"
	}
	return c
}

func (c Config) validate() error {
	if len(c.GroupName) == 0 {
		return fmt.Errorf("group: GroupName is required")
	}
	if c.TableName == "" {
		return fmt.Errorf("group: TableName is required")
	}
	if len(c.PartElements) > 0 && len(c.PartElements) != len(c.GroupName) {
		return fmt.Errorf("group: PartElements has %d entries for %d label columns",
			len(c.PartElements), len(c.GroupName))
	}
	switch c.ParamMethod {
	case "mean", "median", "std", "cv", "count", "percentage":
	default:
		return fmt.Errorf("group: unknown ParamMethod %q", c.ParamMethod)
	}
	return nil
}
