package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"resilience-ai/internal/domain"
)

// DatasetTools builds the standard tool set for one dataset-backed agent.
// Every agent gets the same five query shapes; the dataset name scopes
// which indicator table they read.
func DatasetTools(store domain.DatasetStore, dataset string) *ToolRegistry {
	reg := NewToolRegistry()
	reg.Register(&indicatorsTool{store: store, dataset: dataset})
	reg.Register(&trendTool{store: store, dataset: dataset})
	reg.Register(&compareTool{store: store, dataset: dataset})
	reg.Register(&topCountriesTool{store: store, dataset: dataset})
	reg.Register(&listMetricsTool{store: store, dataset: dataset})
	return reg
}

// ToolRegistry implements domain.ToolExecutor over a fixed tool set.
type ToolRegistry struct {
	tools map[string]domain.Tool
	order []string
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]domain.Tool)}
}

// Register adds a tool. Later registrations with the same name replace
// earlier ones.
func (r *ToolRegistry) Register(t domain.Tool) {
	name := t.Schema().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Get implements domain.ToolExecutor.
func (r *ToolRegistry) Get(name string) (domain.Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, domain.NewDomainError("ToolRegistry.Get", domain.ErrToolNotFound, name)
	}
	return t, nil
}

// Schemas implements domain.ToolExecutor. Order is registration order.
func (r *ToolRegistry) Schemas() []domain.ToolSchema {
	out := make([]domain.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Schema())
	}
	return out
}

var _ domain.ToolExecutor = (*ToolRegistry)(nil)

func toolJSON(v any) (domain.ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return domain.ToolResult{}, fmt.Errorf("marshal tool result: %w", err)
	}
	return domain.ToolResult{Content: string(data)}, nil
}

// --- get_indicators ---

type indicatorsTool struct {
	store   domain.DatasetStore
	dataset string
}

func (t *indicatorsTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        "get_indicators",
		Description: "Get all indicators for a country, averaged over the matching years. Year 0 or omitted means all years.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"country": {"type": "string", "description": "Country name or ISO code"},
				"year": {"type": "integer", "description": "Optional year filter"}
			},
			"required": ["country"]
		}`),
	}
}

func (t *indicatorsTool) Execute(ctx context.Context, args json.RawMessage) (domain.ToolResult, error) {
	var in struct {
		Country string `json:"country"`
		Year    int    `json:"year"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return domain.ToolResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	ivs, err := t.store.Indicators(ctx, t.dataset, in.Country, in.Year)
	if err != nil {
		return domain.ToolResult{}, err
	}
	return toolJSON(map[string]any{
		"country":    in.Country,
		"year":       in.Year,
		"indicators": ivs,
	})
}

// --- get_trend ---

type trendTool struct {
	store   domain.DatasetStore
	dataset string
}

func (t *trendTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        "get_trend",
		Description: "Get the yearly trend of one metric for a country between two years.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"country": {"type": "string", "description": "Country name or ISO code"},
				"metric": {"type": "string", "description": "Indicator name, see list_metrics"},
				"year_start": {"type": "integer"},
				"year_end": {"type": "integer"}
			},
			"required": ["country", "metric", "year_start", "year_end"]
		}`),
	}
}

func (t *trendTool) Execute(ctx context.Context, args json.RawMessage) (domain.ToolResult, error) {
	var in struct {
		Country   string `json:"country"`
		Metric    string `json:"metric"`
		YearStart int    `json:"year_start"`
		YearEnd   int    `json:"year_end"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return domain.ToolResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	series, err := t.store.Trend(ctx, t.dataset, in.Country, in.Metric, in.YearStart, in.YearEnd)
	if err != nil {
		return domain.ToolResult{}, err
	}

	direction := "stable"
	if len(series) > 1 {
		switch {
		case series[len(series)-1].Value > series[0].Value:
			direction = "increasing"
		case series[len(series)-1].Value < series[0].Value:
			direction = "decreasing"
		}
	}
	return toolJSON(map[string]any{
		"country": in.Country,
		"metric":  in.Metric,
		"trend":   direction,
		"yearly":  series,
	})
}

// --- compare_countries ---

type compareTool struct {
	store   domain.DatasetStore
	dataset string
}

func (t *compareTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        "compare_countries",
		Description: "Compare indicators across several countries for a year. Countries without data are omitted.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"countries": {"type": "array", "items": {"type": "string"}},
				"year": {"type": "integer", "description": "Optional year filter"}
			},
			"required": ["countries"]
		}`),
	}
}

func (t *compareTool) Execute(ctx context.Context, args json.RawMessage) (domain.ToolResult, error) {
	var in struct {
		Countries []string `json:"countries"`
		Year      int      `json:"year"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return domain.ToolResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	snaps, err := t.store.Compare(ctx, t.dataset, in.Countries, in.Year)
	if err != nil {
		return domain.ToolResult{}, err
	}
	return toolJSON(map[string]any{
		"year":       in.Year,
		"comparison": snaps,
	})
}

// --- top_countries ---

type topCountriesTool struct {
	store   domain.DatasetStore
	dataset string
}

func (t *topCountriesTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        "top_countries",
		Description: "Rank countries by a metric, highest first. Useful for finding hotspots or vulnerable countries.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"metric": {"type": "string", "description": "Indicator name, see list_metrics"},
				"year": {"type": "integer", "description": "Optional year filter"},
				"top_n": {"type": "integer", "description": "How many countries to return, default 15"}
			},
			"required": ["metric"]
		}`),
	}
}

func (t *topCountriesTool) Execute(ctx context.Context, args json.RawMessage) (domain.ToolResult, error) {
	var in struct {
		Metric string `json:"metric"`
		Year   int    `json:"year"`
		TopN   int    `json:"top_n"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return domain.ToolResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	ranked, err := t.store.TopCountries(ctx, t.dataset, in.Metric, in.Year, in.TopN)
	if err != nil {
		return domain.ToolResult{}, err
	}
	return toolJSON(map[string]any{
		"metric":  in.Metric,
		"year":    in.Year,
		"ranking": ranked,
	})
}

// --- list_metrics ---

type listMetricsTool struct {
	store   domain.DatasetStore
	dataset string
}

func (t *listMetricsTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        "list_metrics",
		Description: "List the indicator names available in this agent's dataset.",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	}
}

func (t *listMetricsTool) Execute(ctx context.Context, _ json.RawMessage) (domain.ToolResult, error) {
	metrics, err := t.store.Metrics(ctx, t.dataset)
	if err != nil {
		return domain.ToolResult{}, err
	}
	return toolJSON(map[string]any{"metrics": metrics})
}
