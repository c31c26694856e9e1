// config_validation.go - Startup validation of SD_* environment settings.
//
// Validates every recognised environment variable before the server is
// built so misconfiguration fails fast with one aggregated message.
package server

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// ConfigValidationError represents a configuration validation error.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ConfigValidator collects validation errors.
type ConfigValidator struct {
	errors []ConfigValidationError
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		errors: make([]ConfigValidationError, 0),
	}
}

// AddError adds a validation error.
func (v *ConfigValidator) AddError(field, message string) {
	v.errors = append(v.errors, ConfigValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *ConfigValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *ConfigValidator) Errors() []ConfigValidationError {
	return v.errors
}

// ErrorString returns a formatted string of all errors.
func (v *ConfigValidator) ErrorString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n", len(v.errors)))
	for i, err := range v.errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidateSiteURL accepts either a bare host[:port][/path] or an http(s) URL.
func (v *ConfigValidator) ValidateSiteURL(key, value string) {
	if value == "" {
		return
	}
	if strings.ContainsAny(value, " \t\n?#") {
		v.AddError(key, "must not contain whitespace, query or fragment")
		return
	}
	if !strings.Contains(value, "://") {
		return
	}

	parsed, err := url.Parse(value)
	if err != nil {
		v.AddError(key, fmt.Sprintf("invalid URL format: %v", err))
		return
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		v.AddError(key, "URL must use http or https scheme")
	}
	if parsed.Host == "" {
		v.AddError(key, "URL must include a host")
	}
}

// ValidatePort validates a listen address of the form [host]:port.
func (v *ConfigValidator) ValidatePort(key, value string) {
	if value == "" {
		return
	}

	i := strings.LastIndex(value, ":")
	if i < 0 {
		v.AddError(key, "must be of the form [host]:port")
		return
	}

	port, err := strconv.Atoi(value[i+1:])
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}

	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateEnum validates that a value is one of allowed options.
func (v *ConfigValidator) ValidateEnum(key, value string, allowed []string) {
	if value == "" {
		return
	}

	for _, opt := range allowed {
		if value == opt {
			return
		}
	}

	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// ValidatePositiveInt validates that a value is a positive integer.
func (v *ConfigValidator) ValidatePositiveInt(key, value string) {
	if value == "" {
		return
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return
	}

	if num <= 0 {
		v.AddError(key, "must be a positive integer")
	}
}

// ValidateBool validates that a value parses as a boolean.
func (v *ConfigValidator) ValidateBool(key, value string) {
	if value == "" {
		return
	}
	if _, err := strconv.ParseBool(value); err != nil {
		v.AddError(key, "must be true or false")
	}
}

// ValidateAllConfiguration checks every SD_* variable that is set.
func ValidateAllConfiguration() error {
	v := NewConfigValidator()

	v.ValidatePort("SD_ADDR", os.Getenv("SD_ADDR"))
	v.ValidateSiteURL("SD_URL", os.Getenv("SD_URL"))
	v.ValidatePositiveInt("SD_MAX_UPLOAD_BYTES", os.Getenv("SD_MAX_UPLOAD_BYTES"))
	v.ValidateBool("SD_UPLOAD_REQUIRE_KEY", os.Getenv("SD_UPLOAD_REQUIRE_KEY"))
	v.ValidateBool("SD_MTIME_FALLBACK", os.Getenv("SD_MTIME_FALLBACK"))
	v.ValidateBool("SD_METRICS_PUBLIC", os.Getenv("SD_METRICS_PUBLIC"))

	v.ValidateEnum("SD_LOG_FORMAT", os.Getenv("SD_LOG_FORMAT"), []string{"json", "text"})
	v.ValidateEnum("SD_LOG_LEVEL", os.Getenv("SD_LOG_LEVEL"), []string{"debug", "info", "warn", "error"})
	v.ValidateEnum("SD_ENV", os.Getenv("SD_ENV"), []string{"development", "production", "staging"})

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}

	return nil
}

// WarnOnOptionalMissingConfig logs warnings for optional but recommended config.
func WarnOnOptionalMissingConfig() {
	warnings := make([]string, 0)

	if os.Getenv("SD_URL") == "" {
		warnings = append(warnings, "SD_URL not set - public links will use "+DefaultSiteURL)
	}

	if os.Getenv("SD_LOG_FORMAT") == "" && os.Getenv("SD_ENV") != "production" {
		warnings = append(warnings, "SD_LOG_FORMAT not set - using text format (consider 'json' for production)")
	}

	if len(warnings) > 0 {
		Info("configuration warnings", map[string]any{
			"count":    len(warnings),
			"warnings": warnings,
		})
	}
}
