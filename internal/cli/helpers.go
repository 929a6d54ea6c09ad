package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leadpilot/leadpilot/internal/store"
)

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// parseVariantSpecs parses "A=50,B=50" into variant definitions. A bare
// name without "=" is allowed only when every entry omits the weight,
// in which case traffic is split evenly.
func parseVariantSpecs(spec string) ([]store.NewVariant, error) {
	parts := strings.Split(spec, ",")

	var variants []store.NewVariant
	weighted := 0
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, pctStr, hasWeight := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		v := store.NewVariant{Name: name}
		if hasWeight {
			pct, err := strconv.ParseFloat(strings.TrimSpace(pctStr), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid traffic percent for variant %q: %w", name, err)
			}
			v.TrafficPercent = pct
			weighted++
		}
		variants = append(variants, v)
	}

	if len(variants) == 0 {
		return nil, fmt.Errorf("no variants given")
	}

	switch weighted {
	case 0:
		// Even split, remainder on the last variant
		even := 100.0 / float64(len(variants))
		total := 0.0
		for i := range variants {
			variants[i].TrafficPercent = even
			total += even
		}
		variants[len(variants)-1].TrafficPercent += 100 - total
	case len(variants):
	default:
		return nil, fmt.Errorf("either give every variant a weight or none")
	}

	return variants, nil
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate)
}
