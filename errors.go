package flagship

import (
	"errors"
	"fmt"

	"github.com/TimurManjosov/flagship-go/transport"
)

// ConfigurationError reports invalid client construction. It is fatal: a
// client is never created from invalid options.
type ConfigurationError struct {
	Field   string // offending option field
	Message string // human-readable description
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// NotFoundError reports a flag or experiment key absent from the loaded
// definition set.
type NotFoundError struct {
	Kind string // "flag" or "experiment"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsNetworkError reports whether err is (or wraps) a transport failure.
func IsNetworkError(err error) bool {
	var netErr *transport.NetworkError
	return errors.As(err, &netErr)
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
