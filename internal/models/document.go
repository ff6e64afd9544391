package models

import "time"

// Status values for a document's processing lifecycle.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusProcessing  Status = "PROCESSING"
	StatusVectorizing Status = "VECTORIZING"
	StatusCompleted   Status = "COMPLETED"
	StatusFailed      Status = "FAILED"
)

// EventType classifies entries in the processing event log.
type EventType string

const (
	EventTypeProcessing EventType = "PROCESSING"
	EventTypeCompleted  EventType = "COMPLETED"
	EventTypeFailed     EventType = "FAILED"
	EventTypeCancelled  EventType = "CANCELLED"
)

// Event is one append-only entry in the processing log. Events are never
// mutated or reordered once written.
type Event struct {
	ID         string         `firestore:"id" json:"id"`
	UserID     string         `firestore:"userId,omitempty" json:"userId,omitempty"`
	Event      string         `firestore:"event" json:"event"`
	EventType  EventType      `firestore:"eventType" json:"eventType"`
	Success    bool           `firestore:"success" json:"success"`
	Error      string         `firestore:"error,omitempty" json:"error,omitempty"`
	Timestamp  time.Time      `firestore:"timestamp" json:"timestamp"`
	DurationMS int64          `firestore:"durationMs,omitempty" json:"durationMs,omitempty"`
	Metadata   map[string]any `firestore:"metadata,omitempty" json:"metadata,omitempty"`
}

// Checkpoint records the resume cursor for a run: the last stage that
// completed plus its serialized result, so a re-invoked run can skip work
// already done.
type Checkpoint struct {
	RunID        string            `firestore:"runId" json:"runId"`
	Cursor       string            `firestore:"cursor" json:"cursor"`
	StageResults map[string]string `firestore:"stageResults,omitempty" json:"stageResults,omitempty"`
}

// ProcessingState is the live/terminal pipeline state on a document. The
// whole struct is written back on every checkpoint; Events is always the
// previous slice with entries appended, never dropped. It is not safe for
// concurrent writers: two simultaneous runs on one document will race.
type ProcessingState struct {
	CurrentStatus Status      `firestore:"currentStatus" json:"currentStatus"`
	Progress      int         `firestore:"progress" json:"progress"`
	CurrentStep   string      `firestore:"currentStep,omitempty" json:"currentStep,omitempty"`
	Events        []Event     `firestore:"events,omitempty" json:"events,omitempty"`
	Checkpoint    *Checkpoint `firestore:"checkpoint,omitempty" json:"checkpoint,omitempty"`
	StartedAt     *time.Time  `firestore:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt   *time.Time  `firestore:"completedAt,omitempty" json:"completedAt,omitempty"`
	FailedAt      *time.Time  `firestore:"failedAt,omitempty" json:"failedAt,omitempty"`
	Error         string      `firestore:"error,omitempty" json:"error,omitempty"`
}

// Section is one titled block of document content, either supplied by the
// editor or produced by the structure stage.
type Section struct {
	Title   string `firestore:"title" json:"title"`
	Content string `firestore:"content" json:"content"`
	Order   int    `firestore:"order" json:"order"`
}

// ContentPayload holds the editable content of a document.
type ContentPayload struct {
	Sections      []Section  `firestore:"sections,omitempty" json:"sections,omitempty"`
	ExtractedText string     `firestore:"extractedText,omitempty" json:"extractedText,omitempty"`
	Summary       string     `firestore:"summary,omitempty" json:"summary,omitempty"`
	KeyPoints     []string   `firestore:"keyPoints,omitempty" json:"keyPoints,omitempty"`
	ActionItems   []string   `firestore:"actionItems,omitempty" json:"actionItems,omitempty"`
	Questions     []string   `firestore:"questions,omitempty" json:"questions,omitempty"`
	Suggestions   []string   `firestore:"suggestions,omitempty" json:"suggestions,omitempty"`
	LastUpdated   *time.Time `firestore:"lastUpdated,omitempty" json:"lastUpdated,omitempty"`
}

// Document is the main record for an uploaded document. Every lookup is
// scoped by both ID and OrganizationID.
type Document struct {
	ID             string          `firestore:"-" json:"id"`
	OrganizationID string          `firestore:"organizationId" json:"organizationId"`
	Name           string          `firestore:"name,omitempty" json:"name,omitempty"`
	FilePath       string          `firestore:"filePath,omitempty" json:"filePath,omitempty"`
	MimeType       string          `firestore:"mimeType,omitempty" json:"mimeType,omitempty"`
	FileHash       string          `firestore:"fileHash,omitempty" json:"fileHash,omitempty"`
	ExtractedText  string          `firestore:"extractedText,omitempty" json:"extractedText,omitempty"`
	Content        *ContentPayload `firestore:"content,omitempty" json:"content,omitempty"`
	Analysis       *AnalysisResult `firestore:"analysis,omitempty" json:"analysis,omitempty"`
	Processing     ProcessingState `firestore:"processing" json:"processing"`
	Entities       []Entity        `firestore:"entities,omitempty" json:"entities,omitempty"`
	CreatedAt      time.Time       `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt      time.Time       `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// NotificationType values surfaced to the requesting user.
type NotificationType string

const (
	NotificationDocumentAnalyzed NotificationType = "DOCUMENT_ANALYZED"
	NotificationSecurityAlert    NotificationType = "SECURITY_ALERT"
	NotificationProcessingFailed NotificationType = "DOCUMENT_PROCESSING_FAILED"
)

// Notification is a user-facing record created on terminal pipeline states.
type Notification struct {
	ID             string           `firestore:"id" json:"id"`
	OrganizationID string           `firestore:"organizationId" json:"organizationId"`
	UserID         string           `firestore:"userId" json:"userId"`
	DocumentID     string           `firestore:"documentId" json:"documentId"`
	Type           NotificationType `firestore:"type" json:"type"`
	Title          string           `firestore:"title" json:"title"`
	Message        string           `firestore:"message" json:"message"`
	Priority       string           `firestore:"priority,omitempty" json:"priority,omitempty"`
	Read           bool             `firestore:"read" json:"read"`
	CreatedAt      time.Time        `firestore:"createdAt" json:"createdAt"`
}
