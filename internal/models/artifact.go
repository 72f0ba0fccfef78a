package models

// Artifact is one watermarked document produced for one name.
type Artifact struct {
	Label     string
	Content   []byte
	Password  string
	PageCount int
}

// Protected reports whether the artifact was encrypted.
func (a *Artifact) Protected() bool {
	return a.Password != ""
}

// Password record statuses.
const (
	PasswordStatusProtected = "Protected"
	PasswordStatusFailed    = "Failed"
)

// PasswordRecord is one row of the password report.
type PasswordRecord struct {
	Name     string `json:"name" firestore:"name"`
	Password string `json:"password" firestore:"password"`
	Status   string `json:"status" firestore:"status"`
}

// Delivery statuses.
const (
	DeliveryOK     = "ok"
	DeliveryFailed = "failed"
)

// Delivery is the outcome of handing one name's artifact to a sink.
// Destination is a file path, archive entry or remote file ID depending on the sink.
type Delivery struct {
	Name        string `json:"name" firestore:"name"`
	Status      string `json:"status" firestore:"status"`
	Destination string `json:"destination,omitempty" firestore:"destination,omitempty"`
	Error       string `json:"error,omitempty" firestore:"error,omitempty"`
}

// Failed reports whether the delivery did not succeed.
func (d Delivery) Failed() bool {
	return d.Status != DeliveryOK
}
