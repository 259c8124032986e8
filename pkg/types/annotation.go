package types

// Attachment is an uploaded report routed to the model backend as inline
// binary data with its declared media type. The portal never parses the
// content itself.
type Attachment struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
}

// GenerationRequest is the input to the model invocation layer
type GenerationRequest struct {
	Prompt      string
	Attachment  *Attachment
	Temperature *float64
}

// AnnotationRequest represents one doctor submission for a patient
type AnnotationRequest struct {
	PatientLoginID string
	Notes          string
	Attachment     *Attachment
	// Structured requests the ALERTS:/SUMMARY: dual-section output and
	// enables strict section parsing.
	Structured bool
}

// AnnotationResult is what the pipeline returns for display
type AnnotationResult struct {
	Summary string       `json:"summary"`
	Alerts  []string     `json:"alerts,omitempty"`
	Entry   HistoryEntry `json:"entry"`
	Model   string       `json:"model"`
}
