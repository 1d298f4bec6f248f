package provider

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a provider that cannot be constructed from the
// available configuration: a missing API key, a missing model mapping or an
// empty provider list.
type ConfigurationError struct {
	Provider ID
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error for provider %s: %s", e.Provider, e.Reason)
}

// UnsupportedProviderError reports a provider identifier outside the known set.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %s (supported providers are: %s)",
		e.Provider, strings.Join(names(), ", "))
}
