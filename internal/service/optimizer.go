package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ainur/freight-quotes/internal/metrics"
	"github.com/ainur/freight-quotes/internal/model"
)

// CostPattern is a detected regularity in historical cost data.
type CostPattern struct {
	PatternType        string   `json:"pattern_type"` // seasonal, route-specific, cargo-dependent
	Description        string   `json:"description"`
	ImpactScore        float64  `json:"impact_score"` // 0..1
	AffectedComponents []string `json:"affected_components"`
	Confidence         float64  `json:"confidence"` // 0..1
	Recommendations    []string `json:"recommendations"`
}

type OptimizationSuggestion struct {
	ID                       uuid.UUID `json:"id"`
	Title                    string    `json:"title"`
	Description              string    `json:"description"`
	EstimatedSavings         float64   `json:"estimated_savings"`
	ImplementationComplexity string    `json:"implementation_complexity"` // low, medium, high
	Priority                 string    `json:"priority"`                  // low, medium, high
	AffectedSettings         []string  `json:"affected_settings"`
	Prerequisites            []string  `json:"prerequisites"`
	Risks                    []string  `json:"risks"`
}

// AdvisorStrategy is the pluggable scoring core of the optimizer. The
// pattern and suggestion shapes are part of the contract; the scoring
// behind them is not.
type AdvisorStrategy interface {
	Analyze(route *model.Route, historical []model.CostSample, windowDays int) []CostPattern
	Suggest(route *model.Route, patterns []CostPattern, settings []model.CostSetting) []OptimizationSuggestion
}

// Optimizer analyzes cost breakdowns against historical samples. Its
// output is advisory; callers must tolerate it failing or returning
// nothing.
type Optimizer struct {
	strategy AdvisorStrategy
	log      zerolog.Logger
	sink     metrics.Sink
}

func NewOptimizer(strategy AdvisorStrategy, log zerolog.Logger, sink metrics.Sink) *Optimizer {
	if strategy == nil {
		strategy = TemplateStrategy{}
	}
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &Optimizer{strategy: strategy, log: log, sink: sink}
}

func (o *Optimizer) AnalyzePatterns(_ context.Context, route *model.Route, historical []model.CostSample, windowDays int) []CostPattern {
	started := time.Now()
	patterns := o.strategy.Analyze(route, historical, windowDays)

	tags := map[string]string{"route_id": route.ID.String()}
	o.sink.Timing("cost_optimization.pattern_analysis_duration", time.Since(started), tags)
	o.sink.Gauge("cost_optimization.patterns_detected", float64(len(patterns)), tags)
	return patterns
}

func (o *Optimizer) SuggestOptimizations(_ context.Context, route *model.Route, patterns []CostPattern, settings []model.CostSetting) []OptimizationSuggestion {
	suggestions := o.strategy.Suggest(route, patterns, settings)

	totalSavings := 0.0
	for _, s := range suggestions {
		totalSavings += s.EstimatedSavings
	}
	tags := map[string]string{"route_id": route.ID.String()}
	o.sink.Gauge("cost_optimization.suggestions_generated", float64(len(suggestions)), tags)
	o.sink.Gauge("cost_optimization.potential_savings", totalSavings, tags)
	return suggestions
}

// TemplateStrategy is the reference strategy: a fixed pattern catalogue
// whose confidence is scaled by how much in-window history actually backs
// it. Replace it with a statistical strategy without touching consumers.
type TemplateStrategy struct{}

func (TemplateStrategy) Analyze(route *model.Route, historical []model.CostSample, windowDays int) []CostPattern {
	support := historySupport(historical, windowDays)

	patterns := []CostPattern{
		{
			PatternType:        "seasonal",
			Description:        "Fuel costs increase during winter months",
			ImpactScore:        0.8,
			AffectedComponents: []string{model.CostTypeFuel, model.CostTypeMaintenance},
			Confidence:         0.85 * support,
			Recommendations: []string{
				"Consider bulk fuel purchasing before winter",
				"Optimize route planning for winter conditions",
			},
		},
		{
			PatternType:        "route-specific",
			Description:        "Higher maintenance costs on long corridors",
			ImpactScore:        0.6,
			AffectedComponents: []string{model.CostTypeMaintenance, model.CostTypeTime},
			Confidence:         0.75 * support,
			Recommendations: []string{
				"Evaluate alternative corridors for recurring jobs",
				"Increase maintenance budget for high-mileage routes",
			},
		},
	}
	if route.Cargo != nil && route.Cargo.RequiresSpecial("Temperature controlled") {
		patterns = append(patterns, CostPattern{
			PatternType:        "cargo-dependent",
			Description:        "Refrigerated cargo increases fuel consumption",
			ImpactScore:        0.7,
			AffectedComponents: []string{model.CostTypeFuel, model.CategoryCargoSpecific},
			Confidence:         0.9 * support,
			Recommendations: []string{
				"Optimize refrigeration unit efficiency",
				"Consider dedicated vehicles for refrigerated cargo",
			},
		})
	}
	return patterns
}

func (TemplateStrategy) Suggest(route *model.Route, patterns []CostPattern, _ []model.CostSetting) []OptimizationSuggestion {
	if len(patterns) == 0 {
		return nil
	}
	scale := route.TotalDistanceKm() / 1000

	suggestions := []OptimizationSuggestion{
		{
			ID:                       uuid.New(),
			Title:                    "Optimize fuel consumption",
			Description:              "Implement fuel efficiency measures based on route analysis",
			EstimatedSavings:         1500.0 * scale,
			ImplementationComplexity: "medium",
			Priority:                 "high",
			AffectedSettings:         []string{model.CostTypeFuel, model.CostTypeMaintenance},
			Prerequisites:            []string{"Driver training", "Vehicle maintenance"},
			Risks:                    []string{"Initial implementation costs", "Driver adaptation period"},
		},
		{
			ID:                       uuid.New(),
			Title:                    "Route consolidation",
			Description:              "Adjust route planning to reduce unloaded mileage",
			EstimatedSavings:         800.0 * scale,
			ImplementationComplexity: "low",
			Priority:                 "medium",
			AffectedSettings:         []string{model.CostTypeTime, model.CostTypeFuel},
			Prerequisites:            []string{"Route analysis", "GPS data"},
			Risks:                    []string{"Potential increase in distance"},
		},
	}
	return suggestions
}

// historySupport maps the number of in-window samples onto (0, 1]; a bare
// catalogue with no history keeps half confidence.
func historySupport(historical []model.CostSample, windowDays int) float64 {
	if windowDays <= 0 {
		windowDays = 90
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)
	inWindow := 0
	for _, sample := range historical {
		if sample.RecordedAt.After(cutoff) {
			inWindow++
		}
	}
	support := 0.5 + float64(inWindow)*0.05
	if support > 1 {
		return 1
	}
	return support
}
