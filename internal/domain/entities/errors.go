package entities

import (
	"fmt"
)

// ConfigurationParseError indicates a properties file in a profile could not be parsed.
type ConfigurationParseError struct {
	ProfileID string
	FileName  string
	Cause     error
}

func (e *ConfigurationParseError) Error() string {
	return fmt.Sprintf("profile %s: failed to parse %s: %v", e.ProfileID, e.FileName, e.Cause)
}

func (e *ConfigurationParseError) Unwrap() error {
	return e.Cause
}
