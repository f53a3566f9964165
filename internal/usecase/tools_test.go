package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resilience-ai/internal/domain"
)

// fakeStore serves canned indicator data and records the dataset it was
// queried with.
type fakeStore struct {
	lastDataset string
	trendSeries []domain.YearValue
	metrics     []string
	err         error
}

func (f *fakeStore) Indicators(_ context.Context, dataset, country string, year int) ([]domain.IndicatorValue, error) {
	f.lastDataset = dataset
	if f.err != nil {
		return nil, f.err
	}
	return []domain.IndicatorValue{{Indicator: "gdp", Value: 4.2}}, nil
}

func (f *fakeStore) Trend(_ context.Context, dataset, country, metric string, yearStart, yearEnd int) ([]domain.YearValue, error) {
	f.lastDataset = dataset
	if f.err != nil {
		return nil, f.err
	}
	return f.trendSeries, nil
}

func (f *fakeStore) Compare(_ context.Context, dataset string, countries []string, year int) ([]domain.CountrySnapshot, error) {
	f.lastDataset = dataset
	snaps := make([]domain.CountrySnapshot, 0, len(countries))
	for _, c := range countries {
		snaps = append(snaps, domain.CountrySnapshot{Country: c})
	}
	return snaps, nil
}

func (f *fakeStore) TopCountries(_ context.Context, dataset, metric string, year, limit int) ([]domain.CountryValue, error) {
	f.lastDataset = dataset
	return []domain.CountryValue{{Country: "Japan", Value: 9.9}}, nil
}

func (f *fakeStore) Metrics(_ context.Context, dataset string) ([]string, error) {
	f.lastDataset = dataset
	return f.metrics, nil
}

func TestDatasetToolsRegistry(t *testing.T) {
	reg := DatasetTools(&fakeStore{}, "economy")

	schemas := reg.Schemas()
	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"get_indicators", "get_trend", "compare_countries", "top_countries", "list_metrics",
	}, names, "schemas keep registration order")

	_, err := reg.Get("get_trend")
	assert.NoError(t, err)
	_, err = reg.Get("nope")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}

func TestIndicatorsToolScopesDataset(t *testing.T) {
	store := &fakeStore{}
	reg := DatasetTools(store, "weather")

	tool, err := reg.Get("get_indicators")
	require.NoError(t, err)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"country":"Japan","year":2020}`))
	require.NoError(t, err)

	assert.Equal(t, "weather", store.lastDataset)
	assert.Contains(t, res.Content, `"gdp"`)
	assert.Contains(t, res.Content, `"Japan"`)
}

func TestTrendToolDirection(t *testing.T) {
	cases := []struct {
		name   string
		series []domain.YearValue
		want   string
	}{
		{"increasing", []domain.YearValue{{Year: 2020, Value: 1}, {Year: 2021, Value: 2}}, "increasing"},
		{"decreasing", []domain.YearValue{{Year: 2020, Value: 2}, {Year: 2021, Value: 1}}, "decreasing"},
		{"flat", []domain.YearValue{{Year: 2020, Value: 1}, {Year: 2021, Value: 1}}, "stable"},
		{"single point", []domain.YearValue{{Year: 2020, Value: 1}}, "stable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := DatasetTools(&fakeStore{trendSeries: tc.series}, "economy")
			tool, err := reg.Get("get_trend")
			require.NoError(t, err)

			res, err := tool.Execute(context.Background(),
				json.RawMessage(`{"country":"Japan","metric":"gdp","year_start":2020,"year_end":2021}`))
			require.NoError(t, err)

			var out struct {
				Trend string `json:"trend"`
			}
			require.NoError(t, json.Unmarshal([]byte(res.Content), &out))
			assert.Equal(t, tc.want, out.Trend)
		})
	}
}

func TestToolsRejectMalformedArguments(t *testing.T) {
	reg := DatasetTools(&fakeStore{}, "economy")
	for _, name := range []string{"get_indicators", "get_trend", "compare_countries", "top_countries"} {
		tool, err := reg.Get(name)
		require.NoError(t, err)
		_, err = tool.Execute(context.Background(), json.RawMessage(`{not json`))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "tool %s", name)
	}
}

func TestToolsPropagateStoreErrors(t *testing.T) {
	store := &fakeStore{err: domain.ErrNotFound}
	reg := DatasetTools(store, "economy")

	tool, err := reg.Get("get_indicators")
	require.NoError(t, err)
	_, err = tool.Execute(context.Background(), json.RawMessage(`{"country":"Atlantis"}`))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListMetricsTool(t *testing.T) {
	reg := DatasetTools(&fakeStore{metrics: []string{"gdp", "inflation"}}, "economy")

	tool, err := reg.Get("list_metrics")
	require.NoError(t, err)
	res, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)

	var out struct {
		Metrics []string `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &out))
	assert.Equal(t, []string{"gdp", "inflation"}, out.Metrics)
}
