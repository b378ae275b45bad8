package domain

// BatchState is the derived status of a batch.
type BatchState string

const (
	BatchCompleted  BatchState = "completed"
	BatchPartial    BatchState = "partial"
	BatchProcessing BatchState = "processing"
	BatchWaiting    BatchState = "waiting"
)

// BatchSummary aggregates every job sharing a batch id.
type BatchSummary struct {
	BatchID        string      `json:"batchId"`
	Status         BatchState  `json:"status"`
	Progress       int         `json:"progress"`
	TotalFiles     int         `json:"totalFiles"`
	ProcessedFiles int         `json:"processedFiles"`
	FailedFiles    int         `json:"failedFiles"`
	Jobs           []JobStatus `json:"jobs"`
}

// BatchSubmission is returned when a batch of files is queued.
type BatchSubmission struct {
	BatchID string   `json:"batchId"`
	JobIDs  []string `json:"jobIds"`
}
