package alert

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/featureflags"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/risk"
)

// SyntheticIssuer is the issuer of alerts synthesized by the aggregator.
const SyntheticIssuer = "FloodWatch"

var riverMonitoredStates = map[string]bool{
	"west bengal": true,
	"bihar":       true,
	"assam":       true,
}

// AggregatorConfig holds configuration for the alert aggregator.
type AggregatorConfig struct {
	// Toggles can disable synthesized alerts. Optional.
	Toggles featureflags.Toggles
	Logger  zerolog.Logger
}

// Aggregator merges sourced alerts with seasonal and regional synthesized ones.
type Aggregator struct {
	toggles featureflags.Toggles
	logger  zerolog.Logger
}

// NewAggregator creates a new alert aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	return &Aggregator{toggles: cfg.Toggles, logger: cfg.Logger}
}

// Aggregate returns the active alert set for a region at now. Sourced alerts
// are deduplicated by (state, category); a synthesized alert is added only
// when no sourced alert shares its key. The result is sorted by severity
// then recency.
func (a *Aggregator) Aggregate(ctx context.Context, region geo.Region, seasonal risk.Level, now time.Time, sourced []Alert) []Alert {
	candidates := make([]Alert, 0, len(sourced)+2)
	for _, s := range sourced {
		if !s.ActiveAt(now) {
			continue
		}
		s.Category = s.CategoryOrInferred()
		if s.State == "" {
			s.State = region.State
		}
		candidates = append(candidates, s)
	}

	result := Dedupe(candidates)
	if dropped := len(candidates) - len(result); dropped > 0 {
		a.logger.Debug().
			Str("state", region.State).
			Int("dropped", dropped).
			Msg("collapsed duplicate alerts")
	}

	if a.toggles == nil || !a.toggles.IsEnabled(ctx, featureflags.FlagDisableSyntheticAlerts) {
		present := make(map[dedupeKey]bool, len(result))
		for _, r := range result {
			present[keyOf(r)] = true
		}
		for _, syn := range Synthesize(region, seasonal, now) {
			if !present[keyOf(syn)] {
				result = append(result, syn)
			}
		}
	}

	Sort(result)
	return result
}

// Synthesize returns the seasonal rainfall warning and the river monitoring
// notice that apply to region.
func Synthesize(region geo.Region, seasonal risk.Level, now time.Time) []Alert {
	var out []Alert
	if seasonal == risk.LevelHigh {
		out = append(out, synthetic(region, now, CategoryRainfall, SeverityWarning,
			"Heavy Rainfall Warning",
			fmt.Sprintf("Heavy rainfall expected in %s during monsoon season. Stay alert.", region.State)))
	}
	if riverMonitoredStates[strings.ToLower(region.State)] {
		out = append(out, synthetic(region, now, CategoryRiver, SeverityInfo,
			"River Level Monitoring",
			"River water levels being monitored continuously."))
	}
	return out
}

func synthetic(region geo.Region, now time.Time, category Category, severity Severity, title, message string) Alert {
	areas := []string{region.State}
	if region.District != "" && region.District != geo.UnknownDistrict {
		areas = []string{region.District}
	}
	return Alert{
		ID:            SyntheticID(category, region.State),
		Title:         title,
		Message:       message,
		Severity:      severity,
		Category:      category,
		State:         region.State,
		District:      region.District,
		AffectedAreas: areas,
		IssuedBy:      SyntheticIssuer,
		IsActive:      true,
		Synthetic:     true,
		CreatedAt:     now,
	}
}

// SyntheticID is the deterministic ID of a synthesized alert.
func SyntheticID(category Category, state string) string {
	return fmt.Sprintf("synthetic-%s-%s", strings.ToLower(string(category)), slug(state))
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type dedupeKey struct {
	state    string
	category Category
}

func keyOf(a Alert) dedupeKey {
	return dedupeKey{state: strings.ToLower(a.State), category: a.CategoryOrInferred()}
}

// Dedupe keeps one alert per (state, category): the most severe, then the most recent.
func Dedupe(alerts []Alert) []Alert {
	best := make(map[dedupeKey]int, len(alerts))
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		key := keyOf(a)
		i, seen := best[key]
		if !seen {
			best[key] = len(out)
			out = append(out, a)
			continue
		}
		if outranks(a, out[i]) {
			out[i] = a
		}
	}
	return out
}

func outranks(a, b Alert) bool {
	if a.Severity.Rank() != b.Severity.Rank() {
		return a.Severity.Rank() > b.Severity.Rank()
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Sort orders alerts by severity descending, then createdAt descending, then ID.
func Sort(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
