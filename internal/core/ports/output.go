package ports

// Output is the progress sink injected into long-running operations.
// Implementations decide rendering; a non-interactive consumer may discard
// events without blocking the producer.
type Output interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
	// Debug carries high-volume progress frames (pull/build status lines).
	Debug(msg string)
}
