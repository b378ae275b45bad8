package domain

import (
	"math"
	"time"
)

// JobType tags what a job should do with its files.
type JobType string

const (
	JobProcessSingleDocument JobType = "PROCESS_SINGLE_DOCUMENT"
	JobProcessBatchDocuments JobType = "PROCESS_BATCH_DOCUMENTS"
	JobGenerateSummary       JobType = "GENERATE_SUMMARY"
	JobExtractKeywords       JobType = "EXTRACT_KEYWORDS"
	JobVectorizeDocument     JobType = "VECTORIZE_DOCUMENT"
)

// JobState is the lifecycle state of a job.
type JobState string

const (
	JobWaiting   JobState = "waiting"
	JobActive    JobState = "active"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// FileDescriptor references an uploaded file waiting to be processed.
type FileDescriptor struct {
	FileID       string `json:"fileId"       validate:"required"`
	OriginalName string `json:"originalName" validate:"required"`
	FilePath     string `json:"filePath"     validate:"required"`
	FileSize     int64  `json:"fileSize"     validate:"gte=0"`
	MimeType     string `json:"mimeType"     validate:"required"`
}

// ProcessingOptions toggles the optional steps of per-file processing.
type ProcessingOptions struct {
	GenerateSummary       bool `json:"generateSummary,omitempty"`
	ExtractKeywords       bool `json:"extractKeywords,omitempty"`
	Vectorize             bool `json:"vectorize,omitempty"`
	DeleteAfterProcessing bool `json:"deleteAfterProcessing,omitempty"`
}

// JobPayload is the submission contract between the HTTP layer and the queue.
type JobPayload struct {
	Type    JobType            `json:"type"              validate:"required,oneof=PROCESS_SINGLE_DOCUMENT PROCESS_BATCH_DOCUMENTS GENERATE_SUMMARY EXTRACT_KEYWORDS VECTORIZE_DOCUMENT"`
	BatchID string             `json:"batchId,omitempty"`
	UserID  string             `json:"userId,omitempty"`
	Files   []FileDescriptor   `json:"files"             validate:"required,min=1,dive"`
	Options *ProcessingOptions `json:"options,omitempty"`
}

// EffectiveOptions returns the supplied options with the flag implied by the
// job type forced on.
func (p JobPayload) EffectiveOptions() ProcessingOptions {
	var opts ProcessingOptions
	if p.Options != nil {
		opts = *p.Options
	}
	switch p.Type {
	case JobVectorizeDocument:
		opts.Vectorize = true
	case JobGenerateSummary:
		opts.GenerateSummary = true
	case JobExtractKeywords:
		opts.ExtractKeywords = true
	}
	return opts
}

// FileStatus is the outcome of processing one file.
type FileStatus string

const (
	FileCompleted FileStatus = "completed"
	FileFailed    FileStatus = "failed"
)

// FileResult records what happened to one file of a job.
type FileResult struct {
	FileID       string     `json:"fileId"`
	OriginalName string     `json:"originalName"`
	Status       FileStatus `json:"status"`
	DocumentID   string     `json:"documentId,omitempty"`
	PageCount    int        `json:"pageCount,omitempty"`
	Vectorized   bool       `json:"vectorized,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Keywords     []string   `json:"keywords,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// JobResult is the per-file breakdown of a finished job. Processed counts
// the files that completed, Failed the ones that did not.
type JobResult struct {
	Files     []FileResult `json:"files"`
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
}

// Progress is reported by the processor while it walks a job's files.
// Handled counts files finished either way and drives the percentage;
// Processed and Failed split Handled by outcome.
type Progress struct {
	Total       int
	Handled     int
	Processed   int
	Failed      int
	CurrentFile string
}

// Percent returns round(handled/total*100), 0 for an empty job.
func (p Progress) Percent() int {
	return Percent(p.Handled, p.Total)
}

// Percent returns round(n/total*100), 0 when total is 0.
func Percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}

// JobStatus is the externally visible status record of a job.
type JobStatus struct {
	JobID       string     `json:"jobId"`
	BatchID     string     `json:"batchId,omitempty"`
	Status      JobState   `json:"status"`
	Progress    int        `json:"progress"`
	Total       int        `json:"total"`
	Processed   int        `json:"processed"`
	Failed      int        `json:"failed"`
	CurrentFile string     `json:"currentFile,omitempty"`
	Result      *JobResult `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// QueueStats counts jobs per state.
type QueueStats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Count adds one job in the given state.
func (s *QueueStats) Count(state JobState) {
	switch state {
	case JobWaiting:
		s.Waiting++
	case JobActive:
		s.Active++
	case JobCompleted:
		s.Completed++
	case JobFailed:
		s.Failed++
	}
	s.Total++
}

// Merge adds the counts of other into s.
func (s *QueueStats) Merge(other QueueStats) {
	s.Waiting += other.Waiting
	s.Active += other.Active
	s.Completed += other.Completed
	s.Failed += other.Failed
	s.Total += other.Total
}
