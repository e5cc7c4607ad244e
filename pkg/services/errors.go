package services

import "fmt"

// ConfigError reports an invalid option. It is always returned before any
// network activity.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ChapterFailedError is the terminal state of a chapter whose pages could
// not all be downloaded within the retry budget.
type ChapterFailedError struct {
	ChapterID string
	Folder    string
	Attempts  int
	Err       error
}

func (e *ChapterFailedError) Error() string {
	return fmt.Sprintf("chapter %q failed after %d attempts: %v", e.Folder, e.Attempts, e.Err)
}

func (e *ChapterFailedError) Unwrap() error { return e.Err }
