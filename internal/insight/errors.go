package insight

import (
	"errors"
	"fmt"
	"strconv"
)

// DataIntegrityError reports a task snapshot value outside the fixed
// enumerations or numeric bounds. Metrics computed over such a snapshot would
// disagree with the displayed distribution, so no metrics are returned.
type DataIntegrityError struct {
	TaskID string
	Field  string
	Value  string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: task %s has invalid %s %q", e.TaskID, e.Field, e.Value)
}

// ConfigurationError reports a caller mistake in the snapshot envelope, such
// as a missing clock reading or a project created in the future.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// IsDataIntegrityError reports whether err (or any error in its chain) is a
// DataIntegrityError.
func IsDataIntegrityError(err error) bool {
	var target *DataIntegrityError
	return errors.As(err, &target)
}

// IsConfigurationError reports whether err (or any error in its chain) is a
// ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
