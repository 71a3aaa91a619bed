package detector

import "fmt"

// ConfigurationError reports a detector setting that makes scanning impossible.
// It is returned before any window is scanned.
type ConfigurationError struct {
	// Field is the offending configuration field.
	Field string
	// Reason describes what is wrong with it.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid detector configuration: %s: %s", e.Field, e.Reason)
}

// ClassificationError reports a classifier failure on one window. Detection of the
// whole image is aborted and no partial result is returned.
type ClassificationError struct {
	// Level is the pyramid level of the failing window.
	Level int
	// X, Y is the window's top-left corner in level coordinates.
	X, Y int
	// Err is the classifier's error.
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed at level %d window (%d,%d): %v", e.Level, e.X, e.Y, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}
