package models

import "time"

// Job statuses recorded on the Firestore job document.
const (
	JobProcessing          = "PROCESSING"
	JobCompleted           = "COMPLETED"
	JobCompletedWithErrors = "COMPLETED_WITH_ERRORS"
	JobFailed              = "FAILED"
)

// Job represents the Firestore record for one batch run over a source document.
// It tracks the overall status and the per-name delivery results.
type Job struct {
	SourceHash     string     `firestore:"sourceHash,omitempty"`
	SourceFilename string     `firestore:"sourceFilename,omitempty"`
	Status         string     `firestore:"status,omitempty"`
	ErrorDetails   string     `firestore:"errorDetails,omitempty"`
	PageCount      int        `firestore:"pageCount,omitempty"`
	NameCount      int        `firestore:"nameCount,omitempty"`
	Mode           string     `firestore:"mode,omitempty"`
	Protected      bool       `firestore:"protected,omitempty"`
	Deliveries     []Delivery `firestore:"deliveries,omitempty"`
	CreatedAt      time.Time  `firestore:"createdAt,omitempty"`
	CompletedAt    time.Time  `firestore:"completedAt,omitempty"`
}
