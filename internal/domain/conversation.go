package domain

// Turn is a single entry in a session's conversation window.
type Turn struct {
	Content   string `json:"content"`
	IsUser    bool   `json:"is_user"`
	Timestamp string `json:"timestamp"`
}

// Document is one certificate record returned by a search backend.
type Document struct {
	Name    string
	Course  string
	Status  string
	FileURL string
	// Fields holds the full record as returned by the backend.
	Fields map[string]any
}
