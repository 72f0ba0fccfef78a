package models

// These structs define the JSON payloads exchanged by the HTTP and event functions.

// BatchManifest is the JSON object dropped into the intake bucket to start a batch.
// Object names are resolved against the bucket the manifest was written to.
type BatchManifest struct {
	SourceObject string   `json:"sourceObject"`
	RosterObject string   `json:"rosterObject,omitempty"`
	Names        []string `json:"names,omitempty"`
	Mode         string   `json:"mode"`
	Style        string   `json:"style,omitempty"`
	Protect      bool     `json:"protect"`
	FolderID     string   `json:"folderId,omitempty"`
}

// WatermarkResponse is the JSON body returned by the HTTP function for upload mode.
type WatermarkResponse struct {
	JobID      string           `json:"jobId"`
	Status     string           `json:"status"`
	PageCount  int              `json:"pageCount"`
	Deliveries []Delivery       `json:"deliveries"`
	Passwords  []PasswordRecord `json:"passwords,omitempty"`
}

// OfferedDocument is one directly offered artifact in a JSON download response.
type OfferedDocument struct {
	Name          string `json:"name"`
	Filename      string `json:"filename"`
	ContentBase64 string `json:"contentBase64"`
}

// DownloadResponse is the JSON body returned by the HTTP function for download mode
// when more than one name was requested.
type DownloadResponse struct {
	JobID      string            `json:"jobId"`
	Documents  []OfferedDocument `json:"documents"`
	Deliveries []Delivery        `json:"deliveries"`
	Passwords  []PasswordRecord  `json:"passwords,omitempty"`
}
