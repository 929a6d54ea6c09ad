package scoring

import (
	"fmt"
	"strings"

	"github.com/leadpilot/leadpilot/internal/store"
)

// Kind discriminates the value shapes a feature can take.
type Kind int

const (
	KindNumber Kind = iota
	KindBoolean
	KindList
)

// FeatureValue is a single extracted signal. Absent features are simply
// missing from the Vector; absence affects confidence, not the score.
type FeatureValue struct {
	Kind   Kind
	Number float64 // 0-100 scale
	Bool   bool
	Length int
}

func Number(v float64) FeatureValue { return FeatureValue{Kind: KindNumber, Number: v} }
func Boolean(b bool) FeatureValue   { return FeatureValue{Kind: KindBoolean, Bool: b} }
func List(n int) FeatureValue       { return FeatureValue{Kind: KindList, Length: n} }

// Normalized maps a feature value to [0, 1]: numbers are divided by 100
// and clamped, booleans map to {0, 1}, lists map to min(1, length/10).
func (f FeatureValue) Normalized() float64 {
	switch f.Kind {
	case KindBoolean:
		if f.Bool {
			return 1
		}
		return 0
	case KindList:
		v := float64(f.Length) / 10
		if v > 1 {
			return 1
		}
		if v < 0 {
			return 0
		}
		return v
	default:
		v := f.Number / 100
		if v > 1 {
			return 1
		}
		if v < 0 {
			return 0
		}
		return v
	}
}

// Vector is an extracted feature vector keyed by feature name.
type Vector map[string]FeatureValue

// Feature names form a closed set; algorithm weights referencing any
// other name are rejected at creation time.
const (
	FeatureCompanySize        = "company_size"
	FeatureSeniority          = "seniority"
	FeatureIndustry           = "industry"
	FeatureDepartmentFit      = "department_fit"
	FeatureContactQuality     = "contact_quality"
	FeatureEmailEngagement    = "email_engagement"
	FeatureWebsiteEngagement  = "website_engagement"
	FeatureBuyingIntent       = "buying_intent"
	FeatureInteractionHistory = "interaction_history"
)

// KnownFeatures lists every feature name extraction can produce.
var KnownFeatures = []string{
	FeatureCompanySize,
	FeatureSeniority,
	FeatureIndustry,
	FeatureDepartmentFit,
	FeatureContactQuality,
	FeatureEmailEngagement,
	FeatureWebsiteEngagement,
	FeatureBuyingIntent,
	FeatureInteractionHistory,
}

// ValidateWeights rejects unknown feature names and negative weights.
// Called at algorithm creation so bad configuration never reaches
// scoring time.
func ValidateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("weight map is empty")
	}
	known := make(map[string]bool, len(KnownFeatures))
	for _, name := range KnownFeatures {
		known[name] = true
	}
	for name, w := range weights {
		if !known[name] {
			return fmt.Errorf("unknown feature %q", name)
		}
		if w < 0 {
			return fmt.Errorf("feature %q has negative weight %.4f", name, w)
		}
	}
	return nil
}

// Extract maps a lead's raw attributes to a feature vector. Each
// producer is independent; missing source data yields an absent
// feature, never a zero.
func Extract(lead *store.Lead) Vector {
	v := make(Vector)

	if score, ok := companySizeScore(lead.EmployeeCount); ok {
		v[FeatureCompanySize] = Number(score)
	}
	if score, ok := seniorityScore(lead.JobTitle); ok {
		v[FeatureSeniority] = Number(score)
	}
	if score, ok := industryScore(lead.Industry); ok {
		v[FeatureIndustry] = Number(score)
	}
	if score, ok := departmentScore(lead.Department); ok {
		v[FeatureDepartmentFit] = Number(score)
	}
	if score, ok := contactQualityScore(lead); ok {
		v[FeatureContactQuality] = Number(score)
	}
	if len(lead.IntentSignals) > 0 {
		v[FeatureBuyingIntent] = List(len(lead.IntentSignals))
	}
	if lead.InteractionCount > 0 {
		v[FeatureInteractionHistory] = List(lead.InteractionCount)
	}

	// email_engagement and website_engagement come from activity data
	// that enrichment has not wired up yet; they stay absent so they
	// reduce confidence rather than drag the score down.

	return v
}

// companySizeScore buckets employee count into non-decreasing bands.
func companySizeScore(employees int) (float64, bool) {
	switch {
	case employees <= 0:
		return 0, false
	case employees < 10:
		return 20, true
	case employees < 50:
		return 40, true
	case employees < 200:
		return 60, true
	case employees < 1000:
		return 80, true
	default:
		return 100, true
	}
}

// seniorityScore ranks a job title: executives above VPs above
// directors above managers above senior ICs above everyone else.
func seniorityScore(title string) (float64, bool) {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return 0, false
	}

	switch {
	// "vice president" contains "president"; match the VP tier first so
	// spelled-out VP titles never land in the executive tier.
	case containsAny(t, "vp", "vice president"):
		return 85, true
	case containsAny(t, "ceo", "founder", "president", "chief"):
		return 100, true
	case strings.Contains(t, "director"):
		return 70, true
	case containsAny(t, "manager", "head of"):
		return 55, true
	case containsAny(t, "lead", "senior", "principal"):
		return 40, true
	default:
		return 20, true
	}
}

var (
	highValueIndustries   = []string{"software", "saas", "fintech", "healthcare", "finance"}
	mediumValueIndustries = []string{"retail", "manufacturing", "consulting", "marketing", "education"}
)

// industryScore tiers industries: the high-value allow-list above the
// medium-value list above everything else.
func industryScore(industry string) (float64, bool) {
	ind := strings.ToLower(strings.TrimSpace(industry))
	if ind == "" {
		return 0, false
	}

	if containsAny(ind, highValueIndustries...) {
		return 90, true
	}
	if containsAny(ind, mediumValueIndustries...) {
		return 60, true
	}
	return 30, true
}

func departmentScore(department string) (float64, bool) {
	dept := strings.ToLower(strings.TrimSpace(department))
	if dept == "" {
		return 0, false
	}

	switch {
	case containsAny(dept, "sales", "marketing", "growth", "revenue"):
		return 90, true
	case containsAny(dept, "product", "engineering", "operations"):
		return 60, true
	default:
		return 30, true
	}
}

var freeEmailDomains = map[string]bool{
	"gmail.com":   true,
	"yahoo.com":   true,
	"hotmail.com": true,
	"outlook.com": true,
	"aol.com":     true,
	"icloud.com":  true,
}

// contactQualityScore rewards reachable, business-grade contact data.
func contactQualityScore(lead *store.Lead) (float64, bool) {
	if lead.Email == "" && lead.Phone == "" {
		return 0, false
	}

	score := 0.0
	if lead.Email != "" {
		score += 40
		if at := strings.LastIndex(lead.Email, "@"); at >= 0 {
			domain := strings.ToLower(lead.Email[at+1:])
			if domain != "" && !freeEmailDomains[domain] {
				score += 30
			}
		}
	}
	if lead.Phone != "" {
		score += 30
	}

	return score, true
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
