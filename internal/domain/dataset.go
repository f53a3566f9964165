package domain

import "context"

// IndicatorValue is one averaged indicator reading.
type IndicatorValue struct {
	Indicator string  `json:"indicator"`
	Value     float64 `json:"value"`
}

// YearValue is one point of a yearly trend.
type YearValue struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// CountrySnapshot groups indicator readings for one country.
type CountrySnapshot struct {
	Country    string           `json:"country"`
	Indicators []IndicatorValue `json:"indicators"`
}

// CountryValue is one country's reading of a single metric.
type CountryValue struct {
	Country string  `json:"country"`
	Value   float64 `json:"value"`
}

// DatasetStore answers indicator queries over the per-agent datasets.
// Country arguments match the country name or ISO code, case-insensitively.
// A year of 0 means all years.
type DatasetStore interface {
	// Indicators returns every indicator for a country, averaged over the
	// matching years.
	Indicators(ctx context.Context, dataset, country string, year int) ([]IndicatorValue, error)
	// Trend returns the yearly series of one metric for a country.
	Trend(ctx context.Context, dataset, country, metric string, yearStart, yearEnd int) ([]YearValue, error)
	// Compare returns per-country snapshots for the given countries.
	Compare(ctx context.Context, dataset string, countries []string, year int) ([]CountrySnapshot, error)
	// TopCountries ranks countries by a metric, highest first.
	TopCountries(ctx context.Context, dataset, metric string, year, limit int) ([]CountryValue, error)
	// Metrics lists the indicator names present in a dataset.
	Metrics(ctx context.Context, dataset string) ([]string, error)
}
