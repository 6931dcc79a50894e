package analysis

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects the analysis pipeline.
type Kind string

// Analysis kinds.
const (
	KindFull   Kind = "full"
	KindQuick  Kind = "quick"
	KindCustom Kind = "custom"
)

// ParseKind validates an analysis depth string. Empty input means full.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindFull, nil
	case KindFull, KindQuick, KindCustom:
		return k, nil
	default:
		return "", fmt.Errorf("unknown analysis depth %q", s)
	}
}

// Agent names used in metadata, flags and metrics.
const (
	AgentClassifier    = "classifier"
	AgentSummary       = "summary"
	AgentUXReviewer    = "ux_reviewer"
	AgentDesignAdvisor = "design_advisor"
)

// AgentOrder lists agent names in pipeline order.
var AgentOrder = []string{AgentClassifier, AgentSummary, AgentUXReviewer, AgentDesignAdvisor}

// AgentFlags selects which agents a custom run invokes.
type AgentFlags struct {
	Classifier    bool `json:"classifier"`
	Summary       bool `json:"summary"`
	UXReviewer    bool `json:"ux_reviewer"`
	DesignAdvisor bool `json:"design_advisor"`
}

// AllAgents enables every agent.
func AllAgents() AgentFlags {
	return AgentFlags{Classifier: true, Summary: true, UXReviewer: true, DesignAdvisor: true}
}

// QuickAgents enables the quick-mode agents.
func QuickAgents() AgentFlags {
	return AgentFlags{Classifier: true, Summary: true}
}

// ParseAgentList builds flags from names such as "classifier,summary".
func ParseAgentList(list string) (AgentFlags, error) {
	var f AgentFlags
	for _, name := range strings.Split(list, ",") {
		switch strings.TrimSpace(name) {
		case "":
		case AgentClassifier:
			f.Classifier = true
		case AgentSummary:
			f.Summary = true
		case AgentUXReviewer:
			f.UXReviewer = true
		case AgentDesignAdvisor:
			f.DesignAdvisor = true
		default:
			return AgentFlags{}, fmt.Errorf("unknown agent %q", name)
		}
	}
	return f, nil
}

// Names returns the enabled agents in pipeline order.
func (f AgentFlags) Names() []string {
	names := make([]string, 0, 4)
	if f.Classifier {
		names = append(names, AgentClassifier)
	}
	if f.Summary {
		names = append(names, AgentSummary)
	}
	if f.UXReviewer {
		names = append(names, AgentUXReviewer)
	}
	if f.DesignAdvisor {
		names = append(names, AgentDesignAdvisor)
	}
	return names
}

// Any reports whether at least one agent is enabled.
func (f AgentFlags) Any() bool {
	return f.Classifier || f.Summary || f.UXReviewer || f.DesignAdvisor
}

// CacheKind returns the cache namespace for a run. Custom runs include the agent selection.
func CacheKind(kind Kind, flags AgentFlags) string {
	if kind != KindCustom {
		return string(kind)
	}
	names := flags.Names()
	if len(names) == 0 {
		return "custom:none"
	}
	return "custom:" + strings.Join(names, "+")
}

// Status is derived from the agent results of a run.
type Status string

// Record statuses.
const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Metadata summarizes which agents ran.
type Metadata struct {
	AgentsUsed       []string `json:"agents_used"`
	SuccessfulAgents []string `json:"successful_agents"`
	FailedAgents     []string `json:"failed_agents"`
	RequestedAgents  []string `json:"requested_agents"`
	IsLandingPage    bool     `json:"is_landing_page"`
}

// Record is the aggregated result of one analysis run. Build it with Aggregate and treat it
// as read-only afterwards.
type Record struct {
	ID             string                  `json:"id"`
	URL            string                  `json:"url"`
	AnalysisType   Kind                    `json:"analysis_type"`
	WebsiteData    *PageData               `json:"website_data"`
	Classification *Result[Classification] `json:"classification,omitempty"`
	Summary        *Result[Summary]        `json:"summary,omitempty"`
	UXReview       *Result[UXReview]       `json:"ux_review,omitempty"`
	DesignAdvice   *Result[DesignAdvice]   `json:"design_advice,omitempty"`
	Status         Status                  `json:"status"`
	SuccessRate    float64                 `json:"success_rate"`
	Timestamp      time.Time               `json:"timestamp"`
	Metadata       Metadata                `json:"metadata"`
}

// Outcome collects the raw stage results of one run. Nil results were not attempted.
type Outcome struct {
	ID             string
	URL            string
	Kind           Kind
	Requested      AgentFlags
	Page           *PageData
	Classification *Result[Classification]
	Summary        *Result[Summary]
	UXReview       *Result[UXReview]
	DesignAdvice   *Result[DesignAdvice]
	CompletedAt    time.Time
}

type attempt struct {
	name      string
	attempted bool
	succeeded bool
}

// Aggregate folds an Outcome into a Record, deriving status, success rate and metadata.
func Aggregate(o Outcome) *Record {
	attempts := []attempt{
		{AgentClassifier, o.Classification.Attempted(), o.Classification.Succeeded()},
		{AgentSummary, o.Summary.Attempted(), o.Summary.Succeeded()},
		{AgentUXReviewer, o.UXReview.Attempted(), o.UXReview.Succeeded()},
		{AgentDesignAdvisor, o.DesignAdvice.Attempted(), o.DesignAdvice.Succeeded()},
	}

	meta := Metadata{
		AgentsUsed:       []string{},
		SuccessfulAgents: []string{},
		FailedAgents:     []string{},
		RequestedAgents:  o.Requested.Names(),
	}
	for _, a := range attempts {
		if !a.attempted {
			continue
		}
		meta.AgentsUsed = append(meta.AgentsUsed, a.name)
		if a.succeeded {
			meta.SuccessfulAgents = append(meta.SuccessfulAgents, a.name)
		} else {
			meta.FailedAgents = append(meta.FailedAgents, a.name)
		}
	}
	if o.Classification.Succeeded() {
		meta.IsLandingPage = o.Classification.Payload.IsLandingPage()
	}

	return &Record{
		ID:             o.ID,
		URL:            o.URL,
		AnalysisType:   o.Kind,
		WebsiteData:    o.Page,
		Classification: o.Classification,
		Summary:        o.Summary,
		UXReview:       o.UXReview,
		DesignAdvice:   o.DesignAdvice,
		Status:         deriveStatus(len(meta.AgentsUsed), len(meta.SuccessfulAgents)),
		SuccessRate:    successRate(len(meta.AgentsUsed), len(meta.SuccessfulAgents)),
		Timestamp:      o.CompletedAt,
		Metadata:       meta,
	}
}

func deriveStatus(attempted, succeeded int) Status {
	switch {
	case succeeded == 0:
		return StatusFailed
	case succeeded == attempted:
		return StatusCompleted
	default:
		return StatusPartial
	}
}

func successRate(attempted, succeeded int) float64 {
	if attempted == 0 {
		return 0
	}
	return float64(succeeded) / float64(attempted)
}

// Event is published after a record is produced.
type Event struct {
	RunID        string    `json:"run_id"`
	URL          string    `json:"url"`
	AnalysisType Kind      `json:"analysis_type"`
	CacheKind    string    `json:"cache_kind"`
	Status       Status    `json:"status"`
	SuccessRate  float64   `json:"success_rate"`
	AgentsUsed   []string  `json:"agents_used"`
	CompletedAt  time.Time `json:"completed_at"`
}

// EventFor derives the completion event of a record.
func EventFor(r *Record, cacheKind string) Event {
	return Event{
		RunID:        r.ID,
		URL:          r.URL,
		AnalysisType: r.AnalysisType,
		CacheKind:    cacheKind,
		Status:       r.Status,
		SuccessRate:  r.SuccessRate,
		AgentsUsed:   append([]string(nil), r.Metadata.AgentsUsed...),
		CompletedAt:  r.Timestamp,
	}
}

// Attributes returns the message attributes brokers can filter on.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"event":         "analysis.completed",
		"analysis_type": string(e.AnalysisType),
		"status":        string(e.Status),
	}
}
