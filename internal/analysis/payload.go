package analysis

// WebsiteType is the declared category of a page.
type WebsiteType string

// Known website types.
const (
	TypeLandingPage WebsiteType = "landing_page"
	TypeBlog        WebsiteType = "blog"
	TypeECommerce   WebsiteType = "e_commerce"
	TypeMarketplace WebsiteType = "marketplace"
	TypeCorporate   WebsiteType = "corporate"
	TypePortfolio   WebsiteType = "portfolio"
	TypeNews        WebsiteType = "news"
	TypeEducational WebsiteType = "educational"
	TypeSocialMedia WebsiteType = "social_media"
	TypeForum       WebsiteType = "forum"
	TypeWiki        WebsiteType = "wiki"
	TypeOther       WebsiteType = "other"
)

var websiteTypes = map[WebsiteType]struct{}{
	TypeLandingPage: {}, TypeBlog: {}, TypeECommerce: {}, TypeMarketplace: {},
	TypeCorporate: {}, TypePortfolio: {}, TypeNews: {}, TypeEducational: {},
	TypeSocialMedia: {}, TypeForum: {}, TypeWiki: {}, TypeOther: {},
}

// Classification is the classifier payload.
type Classification struct {
	Type           WebsiteType `json:"type"`
	Reason         string      `json:"reason"`
	Confidence     float64     `json:"confidence"`
	Industry       string      `json:"industry,omitempty"`
	TargetAudience string      `json:"target_audience,omitempty"`
	BusinessModel  string      `json:"business_model,omitempty"`
}

// IsLandingPage reports whether the page was classified as a landing page.
func (c *Classification) IsLandingPage() bool {
	return c != nil && c.Type == TypeLandingPage
}

// Summary is the summarizer payload.
type Summary struct {
	Summary       string   `json:"summary"`
	WordCount     int      `json:"word_count"`
	SentenceCount int      `json:"sentence_count"`
	KeyPoints     []string `json:"key_points"`
}

// Priority ranks a recommendation.
type Priority string

// Recommendation priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// UXRecommendation is one UX improvement.
type UXRecommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Impact      string   `json:"impact"`
}

// UXReview is the UX reviewer payload.
type UXReview struct {
	Strengths       []string           `json:"strengths"`
	Weaknesses      []string           `json:"weaknesses"`
	Recommendations []UXRecommendation `json:"recommendations"`
	OverallScore    float64            `json:"overall_score"`
	WordCount       int                `json:"word_count"`
}

// DesignCategory groups a design recommendation.
type DesignCategory string

// Design categories.
const (
	CategoryVisual      DesignCategory = "visual"
	CategoryLayout      DesignCategory = "layout"
	CategoryTypography  DesignCategory = "typography"
	CategoryColor       DesignCategory = "color"
	CategoryInteraction DesignCategory = "interaction"
)

// Difficulty estimates implementation effort.
type Difficulty string

// Implementation difficulties.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DesignRecommendation is one design improvement.
type DesignRecommendation struct {
	Title                    string         `json:"title"`
	Description              string         `json:"description"`
	Category                 DesignCategory `json:"category"`
	Priority                 Priority       `json:"priority"`
	ImplementationDifficulty Difficulty     `json:"implementation_difficulty"`
}

// DesignAdvice is the design advisor payload.
type DesignAdvice struct {
	Recommendations    []DesignRecommendation `json:"recommendations"`
	OverallDesignScore float64                `json:"overall_design_score"`
	IsLandingPage      bool                   `json:"is_landing_page"`
}
