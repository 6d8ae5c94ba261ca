package grading

import "fmt"

// ConfigurationError reports a malformed grading scale.
// It is returned at load time, never by Classify.
type ConfigurationError struct {
	Reason string
	Band   *GradeBand // offending band, if any
}

func (err *ConfigurationError) Error() string {
	if err.Band != nil {
		return fmt.Sprintf("invalid grading scale: %s (band %s %d-%d)", err.Reason, err.Band.Letter, err.Band.Low, err.Band.High)
	}
	return "invalid grading scale: " + err.Reason
}

func newConfigError(reason string, band ...GradeBand) *ConfigurationError {
	cErr := &ConfigurationError{Reason: reason}
	if len(band) > 0 {
		b := band[0]
		cErr.Band = &b
	}
	return cErr
}
