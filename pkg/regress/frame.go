package regress

import (
	"fmt"
	"strings"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// buildFrame materializes a samples x columns frame from the declared
// selections, aligning on the union of sample labels in first-appearance
// order. filterIndex, when non-nil, restricts and reorders the rows.
func buildFrame(ds *dataset.Dataset, sels []Selection, filterIndex []string) (*dataset.Table, error) {
	var parts []*dataset.Table
	for _, sel := range sels {
		t, err := ds.MustTable(sel.Table)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(sel.Table, "cate") {
			t = t.Transpose()
		}
		var picked *dataset.Table
		if len(sel.Columns) == 0 || (len(sel.Columns) == 1 && sel.Columns[0] == "all") {
			picked = t
		} else {
			picked, err = t.SelectRows(sel.Columns)
			if err != nil {
				return nil, fmt.Errorf("regress: select from %q: %w", sel.Table, err)
			}
		}
		parts = append(parts, picked.Transpose())
	}

	// Union of sample labels, keeping first appearance.
	var samples []string
	seen := make(map[string]struct{})
	for _, p := range parts {
		for _, r := range p.Rows() {
			if _, ok := seen[r]; !ok {
				seen[r] = struct{}{}
				samples = append(samples, r)
			}
		}
	}
	if filterIndex != nil {
		samples = dataset.Intersect(filterIndex, samples)
	}

	var cols []string
	for _, p := range parts {
		cols = append(cols, p.Cols()...)
	}
	out := dataset.NewTable("frame", samples, cols)
	offset := 0
	for _, p := range parts {
		for i, sample := range samples {
			pi, ok := p.RowIndex(sample)
			if !ok {
				continue
			}
			for j := range p.Cols() {
				out.SetText(i, offset+j, p.TextAt(pi, j))
			}
		}
		offset += len(p.Cols())
	}
	return out, nil
}

// sampleFilter resolves the optional grouping restriction into an ordered
// sample id list, or nil when unrestricted.
func (r *Regressor) sampleFilter() ([]string, error) {
	if len(r.cfg.GroupName) == 0 {
		return nil, nil
	}
	gt, err := r.ds.MustTable(r.cfg.FileType)
	if err != nil {
		return nil, err
	}
	labels := make([][]string, len(r.cfg.GroupName))
	for k, name := range r.cfg.GroupName {
		col, ok := gt.TextCol(name)
		if !ok {
			return nil, fmt.Errorf("regress: %q is not in the %s table", name, r.cfg.FileType)
		}
		labels[k] = col
	}
	var out []string
	for i, sample := range gt.Rows() {
		ok := true
		for k := range labels {
			v := labels[k][i]
			if v == "" {
				ok = false
				break
			}
			if len(r.cfg.PartElements) > k && len(r.cfg.PartElements[k]) > 0 {
				found := false
				for _, a := range r.cfg.PartElements[k] {
					if a == v {
						found = true
						break
					}
				}
				if !found {
					ok = false
					break
				}
			}
		}
		if ok {
			out = append(out, sample)
		}
	}
	return out, nil
}
