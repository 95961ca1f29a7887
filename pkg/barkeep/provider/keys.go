package provider

import (
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// keyringService is the service name used in the OS keyring.
const keyringService = "barkeep"

// envVarFor maps a provider name to its conventional API key variable.
func envVarFor(providerName string) string {
	switch providerName {
	case "chatgpt":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return strings.ToUpper(providerName) + "_API_KEY"
	}
}

// ResolveKey finds a provider's API key using the priority chain:
// environment variable, then OS keyring, then the config file value.
func ResolveKey(providerName, configValue string, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	envVar := envVarFor(providerName)
	if v := os.Getenv(envVar); v != "" {
		logger.Debug("api key resolved", "provider", providerName, "source", "env", "var", envVar)
		return v
	}
	if v, err := keyring.Get(keyringService, providerName); err == nil && v != "" {
		logger.Debug("api key resolved", "provider", providerName, "source", "keyring")
		return v
	}
	if configValue != "" {
		logger.Debug("api key resolved", "provider", providerName, "source", "config")
	}
	return configValue
}

// StoreKey saves a provider's API key in the OS keyring.
func StoreKey(providerName, value string) error {
	return keyring.Set(keyringService, providerName, value)
}

// DeleteKey removes a provider's API key from the OS keyring.
func DeleteKey(providerName string) error {
	return keyring.Delete(keyringService, providerName)
}
