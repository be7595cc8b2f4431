package common

import "fmt"

// ConfigurationError reports a missing or invalid setting. Raised before any
// document is touched.
type ConfigurationError struct {
	Setting string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil && e.Reason != e.Err.Error() {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.Setting, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
