// Package analysis defines the data model shared by the scraper, the agents, the orchestrator and
// the HTTP boundary.
//
// PageData is produced once per run by the scraper and is read-only afterwards. Each agent
// produces a Result wrapping its payload. Aggregate folds the results of one run into an
// immutable Record whose status and success rate are derived from the results it holds.
//
// Payload constructors (ParseClassification, NewSummary, ParseUXReview, ParseDesignAdvice)
// validate and build in one step and report problems as *ValidationError values.
package analysis
