package models

import (
	"time"

	"github.com/google/uuid"
)

// ModelType identifies a registered extraction backend.
type ModelType string

const (
	ModelApertus     ModelType = "apertus"
	ModelAzureOpenAI ModelType = "azure_openai"
	ModelHuggingFace ModelType = "huggingface"
	ModelLocal       ModelType = "local"
)

// TaskPriority levels for extracted tasks.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// ParsePriority maps free-form model output to a TaskPriority, defaulting
// to medium for anything unrecognized.
func ParsePriority(s string) TaskPriority {
	switch TaskPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return TaskPriority(s)
	default:
		return PriorityMedium
	}
}

// UnassignedOwner is the sentinel assignee for tasks with no named owner.
const UnassignedOwner = "unassigned"

// ExtractionRequest is one unit of extraction work. Constructed once,
// never mutated afterwards.
type ExtractionRequest struct {
	Text             string    `json:"text"`
	ModelType        ModelType `json:"model_type"`
	Language         string    `json:"language"`
	SessionID        string    `json:"session_id,omitempty"`
	ExtractTasks     bool      `json:"extract_tasks"`
	ExtractRequests  bool      `json:"extract_requests"`
	ExtractSentiment bool      `json:"extract_sentiment"`
}

// ExtractedTask is an action item recovered from conversation text.
type ExtractedTask struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AssignedTo  string         `json:"assigned_to"`
	Priority    TaskPriority   `json:"priority"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	ExtractedBy ModelType      `json:"extracted_by_model"`
	Confidence  float64        `json:"confidence_score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ExtractedClientRequest is a client inquiry or service request recovered
// from conversation text.
type ExtractedClientRequest struct {
	ID           string         `json:"id"`
	RequestType  string         `json:"request_type"`
	Description  string         `json:"description"`
	Urgency      string         `json:"urgency"`
	OriginalText string         `json:"original_text"`
	ExtractedBy  ModelType      `json:"extracted_by_model"`
	Confidence   float64        `json:"confidence_score"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ExtractionStatus distinguishes a genuine zero-item result from a degraded
// one where a backend call or response parse failed along the way.
type ExtractionStatus string

const (
	StatusOK       ExtractionStatus = "ok"
	StatusDegraded ExtractionStatus = "degraded"
)

// ExtractionResult aggregates the output of one orchestrated extraction
// call. Produced once per request; immutable afterwards.
type ExtractionResult struct {
	ModelUsed      ModelType                `json:"model_used"`
	Tasks          []ExtractedTask          `json:"tasks"`
	Requests       []ExtractedClientRequest `json:"requests"`
	SentimentScore *float64                 `json:"sentiment_score,omitempty"`
	Confidence     float64                  `json:"confidence_score"`
	ProcessingTime time.Duration            `json:"processing_time"`
	Status         ExtractionStatus         `json:"status"`
	Failures       []string                 `json:"failures,omitempty"`
	Metadata       map[string]any           `json:"metadata,omitempty"`
}

// NewEntityID returns a fresh identifier for an extracted entity.
func NewEntityID() string {
	return uuid.NewString()
}
