package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-insight/internal/analysis"
	"github.com/JakeFAU/site-insight/internal/scraper"
)

const maxBodyBytes = 1 << 20

type scrapeRequest struct {
	URL string `json:"url"`
}

type agentsConfig struct {
	Classifier    *bool `json:"classifier"`
	Summary       *bool `json:"summary"`
	UXReviewer    *bool `json:"ux_reviewer"`
	DesignAdvisor *bool `json:"design_advisor"`
}

type analyzeRequest struct {
	URL           string        `json:"url"`
	AgentsConfig  *agentsConfig `json:"agents_config"`
	AnalysisDepth string        `json:"analysis_depth"`
	OutputFormat  string        `json:"output_format"`
	UseCache      *bool         `json:"use_cache"`
}

type analyzeMetadata struct {
	AnalysisTime  float64   `json:"analysis_time"`
	AnalysisDepth string    `json:"analysis_depth"`
	OutputFormat  string    `json:"output_format"`
	AgentsUsed    []string  `json:"agents_used"`
	User          string    `json:"user"`
	CacheUsed     bool      `json:"cache_used"`
	Timestamp     time.Time `json:"timestamp"`
}

// analyzeParams is a validated analyze request.
type analyzeParams struct {
	url      string
	kind     analysis.Kind
	flags    analysis.AgentFlags
	format   string
	useCache bool
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if _, err := scraper.ValidateURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.scraper.Scrape(r.Context(), req.URL)
	if err != nil {
		s.logger.Warn("scrape failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeStatus(w, page)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, CodeValidation, "could not read request body", s.now())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeFailure(w, http.StatusBadRequest, CodeMissingBody, "request body is required", s.now())
		return
	}
	params, err := parseAnalyzeRequest(body)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, CodeValidation, err.Error(), s.now())
		return
	}

	user, authed := UserFrom(r.Context())
	if authed && !s.limiter.TryAcquire(user.Key) {
		retryAfter := int(math.Ceil(s.limiter.RetryAfter(user.Key).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeFailure(w, http.StatusTooManyRequests, CodeRateLimited,
			fmt.Sprintf("rate limit of %d requests per minute exceeded", user.RateLimitPerMinute), s.now())
		return
	}

	log := s.logger.With(
		zap.String("url", params.url),
		zap.String("analysis_depth", string(params.kind)),
		zap.String("user", user.User),
		zap.String("request_id", RequestID(r.Context())),
	)
	rec, err := s.analyzer.Analyze(r.Context(), params.url, params.kind, params.flags, params.useCache)
	if err != nil {
		var fe *analysis.FetchError
		if errors.As(err, &fe) {
			log.Warn("analysis failed", zap.Error(err))
			writeFailure(w, http.StatusInternalServerError, CodeAnalysis, err.Error(), s.now())
			return
		}
		log.Error("analysis aborted", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, CodeInternal, "internal error during analysis", s.now())
		return
	}

	meta := analyzeMetadata{
		AnalysisTime:  time.Since(start).Seconds(),
		AnalysisDepth: string(params.kind),
		OutputFormat:  params.format,
		AgentsUsed:    rec.Metadata.AgentsUsed,
		User:          user.User,
		CacheUsed:     params.useCache,
		Timestamp:     s.now(),
	}
	writeSuccess(w, FormatRecord(rec, params.format), meta, s.now())
}

func parseAnalyzeRequest(body []byte) (analyzeParams, error) {
	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return analyzeParams{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if req.URL == "" {
		return analyzeParams{}, errors.New("url is required")
	}
	if _, err := scraper.ValidateURL(req.URL); err != nil {
		return analyzeParams{}, err
	}
	kind, err := analysis.ParseKind(req.AnalysisDepth)
	if err != nil {
		return analyzeParams{}, err
	}
	format, err := ParseFormat(req.OutputFormat)
	if err != nil {
		return analyzeParams{}, err
	}
	p := analyzeParams{
		url:      req.URL,
		kind:     kind,
		flags:    analysis.AllAgents(),
		format:   format,
		useCache: req.UseCache == nil || *req.UseCache,
	}
	if kind == analysis.KindCustom {
		p.flags = req.AgentsConfig.flags()
		if !p.flags.Any() {
			return analyzeParams{}, errors.New("agents_config must enable at least one agent")
		}
	}
	return p, nil
}

// flags applies the request over the all-enabled default. It is safe on a nil receiver.
func (c *agentsConfig) flags() analysis.AgentFlags {
	f := analysis.AllAgents()
	if c == nil {
		return f
	}
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&f.Classifier, c.Classifier)
	set(&f.Summary, c.Summary)
	set(&f.UXReviewer, c.UXReviewer)
	set(&f.DesignAdvisor, c.DesignAdvisor)
	return f
}
