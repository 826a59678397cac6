// models/pdf.go
package models

// AnswerResult is the per-question outcome of the upload pipeline. A failed
// retrieval or generation is recorded here with a zero score and an error
// message in Answer; the pipeline never drops a question.
//
// JSON keys are camelCase: this is the wire contract the web frontend and the
// extension consume.
type AnswerResult struct {
	Question    string                 `json:"question"`
	LectureName string                 `json:"lectureName"`
	Score       float64                `json:"score"`
	Metadata    map[string]interface{} `json:"metadata"`
	Answer      string                 `json:"answer"`
}

// ProcessPDFResponse is the aggregate response of POST /api/process-pdf.
// MatchedQuestions counts results with Score > 0.
type ProcessPDFResponse struct {
	Success          bool           `json:"success"`
	TotalQuestions   int            `json:"totalQuestions"`
	MatchedQuestions int            `json:"matchedQuestions"`
	Results          []AnswerResult `json:"results"`
}

// ProcessPDFError is the 400/500 body of the upload endpoint. ExtractedText
// carries partial OCR output for diagnostics when extraction was the failure.
type ProcessPDFError struct {
	Error         string `json:"error"`
	Details       string `json:"details,omitempty"`
	ExtractedText string `json:"extractedText,omitempty"`
}
