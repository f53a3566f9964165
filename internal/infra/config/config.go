package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Supervisor SupervisorConfig `yaml:"supervisor"`
	LLM        ProviderConfig   `yaml:"llm"`
	Logger     LoggerConfig     `yaml:"logger"`
	Tracer     TracerConfig     `yaml:"tracer"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Datasets   DatasetsConfig   `yaml:"datasets"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Agents     []AgentConfig    `yaml:"agents"`
}

// SupervisorConfig holds routing and loop-control settings.
type SupervisorConfig struct {
	// Prompt is the orchestrator system prompt used for routing calls.
	Prompt string `yaml:"prompt"`
	// MaxRounds is the hard ceiling on router→agent round trips per ask.
	MaxRounds int `yaml:"max_rounds"`
	// SingleReply finishes the conversation once an agent has replied,
	// skipping further routing calls. nil = true.
	SingleReply *bool `yaml:"single_reply,omitempty"`
	// WorkerMaxIter bounds each agent worker's internal LLM+tool loop.
	WorkerMaxIter int `yaml:"worker_max_iter"`
}

// SingleReplyEnabled resolves the tri-state SingleReply flag.
func (s SupervisorConfig) SingleReplyEnabled() bool {
	return s.SingleReply == nil || *s.SingleReply
}

// ProviderConfig describes the OpenAI-compatible completion endpoint.
type ProviderConfig struct {
	Name          string        `yaml:"name"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	APIKey        string        `yaml:"api_key"`
	MaxTokens     int           `yaml:"max_tokens"`
	Temperature   float64       `yaml:"temperature"`
	ContextWindow int           `yaml:"context_window"`
	ConnTimeout   time.Duration `yaml:"conn_timeout"`
	RespTimeout   time.Duration `yaml:"resp_timeout"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig configures the provider circuit breaker.
type CircuitBreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// SessionsConfig holds session persistence settings.
type SessionsConfig struct {
	DataDir      string        `yaml:"data_dir"`
	ReapAfter    time.Duration `yaml:"reap_after"`
	ReapSchedule string        `yaml:"reap_schedule"` // cron expression
}

// DatasetsConfig holds the indicator dataset settings.
type DatasetsConfig struct {
	// Dir contains per-agent CSV exports named agent_<dataset>.csv.
	Dir string `yaml:"dir"`
	// DBPath is the SQLite database the CSVs are loaded into.
	DBPath string `yaml:"db_path"`
}

// GatewayConfig holds HTTP gateway settings.
type GatewayConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr"`
	RequestsPerMin int    `yaml:"requests_per_min"`
	Burst          int    `yaml:"burst"`
}

// AgentConfig defines a single domain agent. Declaration order is the
// keyword-fallback priority order.
type AgentConfig struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	SystemPrompt string   `yaml:"system_prompt"`
	Dataset      string   `yaml:"dataset,omitempty"`
	Keywords     []string `yaml:"keywords,omitempty"`
	MaxIter      int      `yaml:"max_iter,omitempty"`
}

const defaultOrchestratorPrompt = "You are a supervisor managing a team of " +
	"supply-chain risk analysis agents. Given the user's question, decide " +
	"which agent should act next, or whether the conversation is finished."

// Defaults returns the baseline configuration, including the standard
// eight-agent roster with its keyword fallback tables.
func Defaults() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Supervisor: SupervisorConfig{
			Prompt:        defaultOrchestratorPrompt,
			MaxRounds:     20,
			WorkerMaxIter: 10,
		},
		LLM: ProviderConfig{
			Name:          "remote",
			BaseURL:       "http://localhost:8000/v1",
			Model:         "google/gemma-3-12b-it",
			MaxTokens:     1024,
			Temperature:   0.7,
			ContextWindow: 8192,
			ConnTimeout:   30 * time.Second,
			RespTimeout:   120 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Sessions: SessionsConfig{
			DataDir:      filepath.Join(dataDir, "sessions"),
			ReapAfter:    24 * time.Hour,
			ReapSchedule: "@hourly",
		},
		Datasets: DatasetsConfig{
			Dir:    "./output",
			DBPath: filepath.Join(dataDir, "datasets.db"),
		},
		Gateway: GatewayConfig{
			Enabled:        false,
			Addr:           ":8080",
			RequestsPerMin: 60,
			Burst:          10,
		},
		Agents: DefaultAgents(),
	}
}

// DefaultAgents returns the standard roster. Order matters: it is the
// keyword-fallback priority order (more specific domains first).
func DefaultAgents() []AgentConfig {
	return []AgentConfig{
		{
			ID:          "food_agent",
			Name:        "Food",
			Description: "FAOSTAT production, trade, and food commodity prices",
			SystemPrompt: "You are a food security analyst. Use your tools to " +
				"answer questions about food production, trade, and prices.",
			Dataset: "food",
			Keywords: []string{
				"food production", "food trade", "food price", "food security", "compare food",
				"crop", "crops", "agriculture", "harvest", "faostat", "food supply",
				"wheat", "rice production", "maize", "soybean", "sugar cane", "staple crop",
				"food", "agricultural",
			},
		},
		{
			ID:          "economic_news_agent",
			Name:        "Economic News",
			Description: "Real-time economic news and current events",
			SystemPrompt: "You are an economic news analyst. Answer questions " +
				"about current economic events and breaking news.",
			Keywords: []string{
				"economic news", "real-time", "realtime", "live update", "current event",
				"google search", "latest news", "today's news", "breaking",
			},
		},
		{
			ID:          "economy_agent",
			Name:        "Economy",
			Description: "GDP, trade, inflation, and macroeconomic indicators",
			SystemPrompt: "You are a macroeconomic analyst. Use your tools to " +
				"answer questions about GDP, trade, and inflation.",
			Dataset: "economy",
			Keywords: []string{
				"gdp", "trade", "inflation", "commodity", "exchange rate", "current account",
				"economy", "economic", "ppp", "import", "export", "trade balance",
			},
		},
		{
			ID:          "weather_disaster_agent",
			Name:        "Weather & Disaster",
			Description: "Climate indicators and natural disaster records",
			SystemPrompt: "You are a climate and disaster analyst. Use your " +
				"tools to answer questions about weather and natural disasters.",
			Dataset: "weather",
			Keywords: []string{
				"weather", "climate", "disaster", "flood", "drought", "earthquake", "storm",
				"temperature", "precipitation", "era5", "em-dat", "natural disaster",
			},
		},
		{
			ID:          "disease_agent",
			Name:        "Disease",
			Description: "Disease outbreaks, pandemics, and vaccination data",
			SystemPrompt: "You are an epidemiology analyst. Use your tools to " +
				"answer questions about disease outbreaks and vaccination.",
			Dataset: "disease",
			Keywords: []string{
				"disease", "outbreak", "pandemic", "epidemic", "vaccination", "covid",
				"virus", "infection", "health crisis",
			},
		},
		// health_agent comes after disease_agent so "health" in "health
		// expenditure" does not steal disease queries.
		{
			ID:          "health_agent",
			Name:        "Health Systems",
			Description: "Health expenditure and healthcare system capacity",
			SystemPrompt: "You are a health systems analyst. Use your tools to " +
				"answer questions about healthcare capacity and expenditure.",
			Dataset: "health",
			Keywords: []string{
				"health expenditure", "healthcare", "hospital", "health system",
				"health capacity", "medical",
			},
		},
		{
			ID:          "political_agent",
			Name:        "Political",
			Description: "Political stability, governance, and sanctions",
			SystemPrompt: "You are a political risk analyst. Use your tools to " +
				"answer questions about political stability and governance.",
			Dataset: "political",
			Keywords: []string{
				"political", "protest", "sanctions", "stability", "tension", "diplomatic",
				"governance", "conflict ratio", "instability index",
			},
		},
		{
			ID:          "news_stats_agent",
			Name:        "News Statistics",
			Description: "GDELT conflict and media event statistics",
			SystemPrompt: "You are a media and conflict event analyst. Use your " +
				"tools to answer questions about conflict and media event data.",
			Dataset: "news_stats",
			Keywords: []string{
				"conflict", "war", "gdelt", "media", "event data", "news stats",
				"conflict event", "sanctions event", "protest event",
			},
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".resilience-ai")
}

// Load reads the configuration file at path, layering it over Defaults
// and applying environment overrides. A missing file is not an error:
// defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// A configured roster replaces the default one wholesale.
	var probe struct {
		Agents []AgentConfig `yaml:"agents"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(probe.Agents) > 0 {
		cfg.Agents = nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to cfg.
// REMOTE_BLACKWELL_URL and REMOTE_BLACKWELL_MODEL are honored for
// compatibility with existing deployments.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RESILIENCE_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("REMOTE_BLACKWELL_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("RESILIENCE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("REMOTE_BLACKWELL_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("RESILIENCE_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("RESILIENCE_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("RESILIENCE_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("RESILIENCE_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("RESILIENCE_GATEWAY_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := os.Getenv("RESILIENCE_DATASETS_DIR"); v != "" {
		cfg.Datasets.Dir = v
	}
}
