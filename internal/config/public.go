package config

// Public is the non-sensitive view of a Config served by the API.
type Public struct {
	Server struct {
		Port                  int `json:"port"`
		RequestTimeoutSeconds int `json:"request_timeout_seconds"`
	} `json:"server"`
	Auth struct {
		Enabled bool `json:"enabled"`
		Keys    int  `json:"keys"`
	} `json:"auth"`
	LLM struct {
		Model             string  `json:"model"`
		Temperature       float32 `json:"temperature"`
		RequestsPerMinute int     `json:"requests_per_minute"`
		Configured        bool    `json:"configured"`
	} `json:"llm"`
	Scraper struct {
		TimeoutSeconds  int     `json:"timeout_seconds"`
		MaxContentChars int     `json:"max_content_chars"`
		RespectRobots   bool    `json:"respect_robots"`
		Headless        bool    `json:"headless"`
		PerHostRPS      float64 `json:"per_host_rps"`
	} `json:"scraper"`
	Orchestrator struct {
		RateLimitPerMinute int `json:"rate_limit_per_minute"`
		RateWindowSeconds  int `json:"rate_window_seconds"`
		CacheTTLSeconds    int `json:"cache_ttl_seconds"`
	} `json:"orchestrator"`
	Retry struct {
		MaxAttempts int `json:"max_attempts"`
		BaseDelayMs int `json:"base_delay_ms"`
		MaxDelayMs  int `json:"max_delay_ms"`
	} `json:"retry"`
	Cache struct {
		Backend string `json:"backend"`
		MaxSize int    `json:"max_size"`
	} `json:"cache"`
	Events struct {
		PubSub bool `json:"pubsub"`
	} `json:"events"`
}

// Public strips credentials, keys and connection strings.
func (c Config) Public() Public {
	var p Public
	p.Server.Port = c.Server.Port
	p.Server.RequestTimeoutSeconds = c.Server.RequestTimeoutSeconds
	p.Auth.Enabled = c.Auth.Enabled
	p.Auth.Keys = len(c.Auth.Keys)
	p.LLM.Model = c.LLM.Model
	p.LLM.Temperature = c.LLM.Temperature
	p.LLM.RequestsPerMinute = c.LLM.RequestsPerMinute
	p.LLM.Configured = c.LLM.APIKey != ""
	p.Scraper.TimeoutSeconds = c.Scraper.TimeoutSeconds
	p.Scraper.MaxContentChars = c.Scraper.MaxContentChars
	p.Scraper.RespectRobots = c.Scraper.RespectRobots
	p.Scraper.Headless = c.Headless.Enabled
	p.Scraper.PerHostRPS = c.Scraper.PerHostRPS
	p.Orchestrator.RateLimitPerMinute = c.Orchestrator.RateLimitPerMinute
	p.Orchestrator.RateWindowSeconds = c.Orchestrator.RateWindowSeconds
	p.Orchestrator.CacheTTLSeconds = c.Orchestrator.CacheTTLSeconds
	p.Retry.MaxAttempts = c.Retry.MaxAttempts
	p.Retry.BaseDelayMs = c.Retry.BaseDelayMs
	p.Retry.MaxDelayMs = c.Retry.MaxDelayMs
	p.Cache.Backend = c.Cache.Backend
	p.Cache.MaxSize = c.Cache.MaxSize
	p.Events.PubSub = c.PubSub.ProjectID != "" && c.PubSub.TopicName != ""
	return p
}
