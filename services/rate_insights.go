package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"snapfix-server/catalog"
	"snapfix-server/repository"
	"snapfix-server/types"
)

type RateRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

type AllowedRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RateInsights is advisory pricing for one category.
type RateInsights struct {
	Category        string       `json:"category"`
	RecommendedRate float64      `json:"recommendedRate"`
	TypicalRange    RateRange    `json:"typicalRange"`
	AllowedRange    AllowedRange `json:"allowedRange"`
	SampleSize      int          `json:"sampleSize"`
}

// Percentile interpolates the p-quantile of an ascending sample (R-7).
// An exact index returns the order statistic unchanged; interpolated values
// are rounded to the nearest whole rupee.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	idx := float64(len(sorted)-1) * p
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	w := idx - float64(lo)
	return math.Round(sorted[lo]*(1-w) + sorted[hi]*w)
}

// ComputeRateInsights derives recommended and typical rates from prices,
// discarding anything outside bounds. With no usable sample the band itself
// supplies the figures.
func ComputeRateInsights(category string, bounds catalog.RateBounds, prices []float64) RateInsights {
	sample := make([]float64, 0, len(prices))
	for _, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < bounds.Min || p > bounds.Max {
			continue
		}
		sample = append(sample, p)
	}
	sort.Float64s(sample)

	out := RateInsights{
		Category:     category,
		AllowedRange: AllowedRange{Min: bounds.Min, Max: bounds.Max},
		SampleSize:   len(sample),
	}

	if len(sample) == 0 {
		span := bounds.Max - bounds.Min
		out.RecommendedRate = math.Round((bounds.Min + bounds.Max) / 2)
		out.TypicalRange = RateRange{
			Low:  math.Round(bounds.Min + 0.35*span),
			High: math.Round(bounds.Min + 0.65*span),
		}
		return out
	}

	out.RecommendedRate = Percentile(sample, 0.5)
	out.TypicalRange = RateRange{
		Low:  Percentile(sample, 0.25),
		High: Percentile(sample, 0.75),
	}
	return out
}

// RateInsightsService computes insights from the live worker roster.
type RateInsightsService struct {
	workers repository.WorkerRepository
	catalog *catalog.Catalog
}

func NewRateInsightsService(workers repository.WorkerRepository, cat *catalog.Catalog) *RateInsightsService {
	return &RateInsightsService{workers: workers, catalog: cat}
}

func (s *RateInsightsService) Insights(ctx context.Context, category string) (*RateInsights, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, types.NewValidationError("category is required")
	}

	bounds := s.catalog.RateBounds(category)
	prices, err := s.workers.ListRates(ctx, category, bounds.Min, bounds.Max)
	if err != nil {
		return nil, types.NewInternalError("Error fetching rate insights", err)
	}

	insights := ComputeRateInsights(category, bounds, prices)
	return &insights, nil
}
