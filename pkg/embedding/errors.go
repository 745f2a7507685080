package embedding

import "fmt"

// ConfigurationError indicates a missing or invalid credential or
// setting. It is raised before any network attempt.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// maxBodyInError bounds how much of an upstream response body is kept
// on an UpstreamError for diagnostics.
const maxBodyInError = 500

// UpstreamError indicates the backing service returned a non-success
// status or a structurally unexpected response.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Reason     string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

// truncateBody trims a response body for inclusion in errors and logs
func truncateBody(body []byte) string {
	if len(body) <= maxBodyInError {
		return string(body)
	}
	return string(body[:maxBodyInError]) + "..."
}
