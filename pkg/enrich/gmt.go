// Package enrich runs over-representation and gene-set enrichment analyses
// against result tables produced by the comparison and correlation engines.
package enrich

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// GeneSet is one curated annotation term with its member genes.
type GeneSet struct {
	Name        string
	Description string
	Genes       []string
}

// ReadGMT parses the tab-separated GMT gene-set format: one set per line as
// name, description, then one gene per field. Blank lines are skipped; a
// line with fewer than three fields is an error.
func ReadGMT(path string) ([]GeneSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("enrich: open gene sets: %w", err)
	}
	defer f.Close()

	var sets []GeneSet
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("enrich: %s:%d: gene set needs name, description and at least one gene", path, line)
		}
		genes := make([]string, 0, len(fields)-2)
		for _, g := range fields[2:] {
			if g = strings.TrimSpace(g); g != "" {
				genes = append(genes, g)
			}
		}
		sets = append(sets, GeneSet{Name: fields[0], Description: fields[1], Genes: genes})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("enrich: read gene sets: %w", err)
	}
	return sets, nil
}

// sizeFilter drops sets outside the [min, max] member range after
// restricting to the given gene universe; a nil universe keeps all members.
func sizeFilter(sets []GeneSet, universe map[string]struct{}, min, max int) []GeneSet {
	var out []GeneSet
	for _, s := range sets {
		genes := s.Genes
		if universe != nil {
			genes = genes[:0:0]
			for _, g := range s.Genes {
				if _, ok := universe[g]; ok {
					genes = append(genes, g)
				}
			}
		}
		if len(genes) < min || (max > 0 && len(genes) > max) {
			continue
		}
		out = append(out, GeneSet{Name: s.Name, Description: s.Description, Genes: genes})
	}
	return out
}
