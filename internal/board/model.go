package board

// Record is a single leaderboard entry as submitted by the game client.
// Fields are accepted verbatim: initials and date are caller-supplied and
// deliberately unvalidated, matching what the browser sends.
type Record struct {
	Initials       string `json:"initials"`
	Level          int    `json:"level"`
	Round          int    `json:"round"`
	PassagesPassed int    `json:"passagesPassed"`
	Date           string `json:"date"`
}

// DocumentVersion tags the persisted document shape. Informational only; it
// is not used for conflict detection.
const DocumentVersion = "1.0"

// Document is the full leaderboard state as stored in the remote repository.
// It is read and replaced whole on every write, never patched.
type Document struct {
	Leaderboard []Record `json:"leaderboard"`
	LastUpdated string   `json:"last_updated"`
	Version     string   `json:"version"`
}
