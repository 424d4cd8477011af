package logging

// Standardized attribute keys shared across components.
const (
	FieldComponent  = "component"
	FieldEventType  = "event_type"
	FieldStage      = "stage"
	FieldDocumentID = "document_id"
	FieldJobID      = "job_id"
	FieldWorkerID   = "worker_id"
	FieldRequestID  = "request_id"
	FieldErrorHint  = "error_hint"
)
