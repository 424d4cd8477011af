package docstore

import "time"

// Status represents a document's position in the processing lifecycle.
type Status string

const (
	StatusIngested    Status = "ingested"
	StatusAnalyzing   Status = "analyzing"
	StatusAnalyzed    Status = "analyzed"
	StatusNeedsReview Status = "needs_review"
	StatusApproved    Status = "approved"
	StatusCommitted   Status = "committed"
	StatusError       Status = "error"
	StatusDuplicate   Status = "duplicate"
)

// allowedTransitions is the full lifecycle graph. Committed and duplicate are
// terminal; error can only be reset back to ingested.
var allowedTransitions = map[Status][]Status{
	StatusIngested:    {StatusAnalyzing, StatusError},
	StatusAnalyzing:   {StatusAnalyzed, StatusNeedsReview, StatusError},
	StatusAnalyzed:    {StatusApproved, StatusNeedsReview, StatusError},
	StatusNeedsReview: {StatusApproved, StatusError},
	StatusApproved:    {StatusCommitted, StatusError},
	StatusError:       {StatusIngested},
	StatusCommitted:   nil,
	StatusDuplicate:   nil,
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCommitted || s == StatusDuplicate
}

// Valid reports whether the status is one the lifecycle knows.
func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// ClassifierSource identifies which mechanism produced a classification.
const (
	SourceRule  = "rule"
	SourceModel = "model"
)

// Document is a single ingested file and everything the pipeline has learned
// about it.
type Document struct {
	ID           int64
	ContentHash  string
	OriginalName string
	StoredPath   string
	FinalPath    string
	TextPath     string
	MimeType     string
	SizeBytes    int64
	Status       Status
	Title        string
	OCRNeeded    bool
	PageCount    int

	Category          string
	SuggestedFilename string
	TargetPath        string
	Confidence        *float64
	ClassifierSource  string
	MatchedRule       string
	TraceJSON         string

	// User overrides recorded at approval. The classifier's suggestions
	// above stay untouched so the two can be compared after the fact.
	UserCategory   string
	UserFilename   string
	UserTargetPath string

	ReviewReason string
	ErrorMessage string
	CanonicalID  *int64
	ApprovedBy   string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	AnalyzedAt  *time.Time
	ApprovedAt  *time.Time
	CommittedAt *time.Time
}

// EffectiveCategory returns the category the commit should file under: the
// user's override when present, otherwise the classifier's suggestion.
func (d *Document) EffectiveCategory() string {
	if d.UserCategory != "" {
		return d.UserCategory
	}
	return d.Category
}

// EffectiveFilename returns the filename to commit with, preferring the
// user's override.
func (d *Document) EffectiveFilename() string {
	if d.UserFilename != "" {
		return d.UserFilename
	}
	return d.SuggestedFilename
}

// EffectiveTargetPath returns the target directory to commit into, preferring
// the user's override.
func (d *Document) EffectiveTargetPath() string {
	if d.UserTargetPath != "" {
		return d.UserTargetPath
	}
	return d.TargetPath
}

// Chunk is one embeddable slice of a document's extracted text. VectorKey is
// empty until the chunk's embedding has been stored in the vector index.
type Chunk struct {
	ID            int64
	DocumentID    int64
	Seq           int
	Text          string
	TokenEstimate int
	VectorKey     string
	CreatedAt     time.Time
}

// Rule is a deterministic classification rule. Conditions and actions are
// stored as JSON and interpreted by the rules engine.
type Rule struct {
	ID             int64
	Name           string
	Priority       int
	Active         bool
	ConditionsJSON string
	ActionsJSON    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Audit event types recorded against documents.
const (
	EventIngested     = "ingested"
	EventDuplicate    = "duplicate_detected"
	EventTransitioned = "status_changed"
	EventClassified   = "classified"
	EventApproved     = "approved"
	EventRejected     = "rejected"
	EventCommitted    = "committed"
	EventReset        = "reset"
	EventFailed       = "failed"
	EventStageFailed  = "stage_failed"
	EventRuleChanged  = "rule_changed"
)

// Actors recorded on audit events.
const (
	ActorSystem   = "system"
	ActorPipeline = "pipeline"
)

// AuditEvent is one immutable entry in the audit trail.
type AuditEvent struct {
	ID           int64
	ResourceType string
	ResourceID   int64
	EventType    string
	Actor        string
	DetailJSON   string
	CreatedAt    time.Time
}

// Resource types referenced by audit events.
const (
	ResourceDocument = "document"
	ResourceRule     = "rule"
)
