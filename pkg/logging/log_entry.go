package logging

// LogEntry represents a structured log record with fields particularly
// relevant to correction-provider operations.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Correction-specific fields
	Fingerprint string // Content fingerprint of the unit being corrected
	Category    string // Correction category (GRAMMAR, SPELLING, ...)
	Attempt     int    // Provider attempt number, if relevant
	Latency     int64  // Operation duration in milliseconds

	// General structured data
	Fields map[string]interface{}
}
