package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/leadpilot/leadpilot/internal/store"
)

const topFactorCount = 5

// buildExplanation ranks factors by absolute contribution and writes a
// short summary referencing the score, category and top three factors.
func buildExplanation(score float64, category string, factors []store.Factor) store.Explanation {
	sort.Slice(factors, func(i, j int) bool {
		ci, cj := math.Abs(factors[i].Contribution), math.Abs(factors[j].Contribution)
		if ci != cj {
			return ci > cj
		}
		return factors[i].Feature < factors[j].Feature
	})

	top := factors
	if len(top) > topFactorCount {
		top = top[:topFactorCount]
	}

	return store.Explanation{
		TopFactors: top,
		Summary:    summarize(score, category, top),
	}
}

func summarize(score float64, category string, top []store.Factor) string {
	if len(top) == 0 {
		return fmt.Sprintf("Scored %.1f (%s): no weighted features were present for this lead.", score, category)
	}

	names := make([]string, 0, 3)
	for i, f := range top {
		if i == 3 {
			break
		}
		names = append(names, strings.ReplaceAll(f.Feature, "_", " "))
	}

	return fmt.Sprintf("Scored %.1f (%s), driven mainly by %s.",
		score, category, joinNatural(names))
}

func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
