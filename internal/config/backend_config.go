package config

import "strconv"

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetBackendBaseURL() string {
	return GetEnv("BACKEND_BASE_URL", "http://localhost:8000")
}

// GetBackendTimeout is the transport timeout, in seconds, for every backend
// call. The navigation guard makes exactly one call per request, so this
// bounds guard latency too.
func (Backend) GetBackendTimeout() int {
	raw := GetEnv("BACKEND_TIMEOUT_SECONDS", "")
	if raw == "" {
		return 10
	}
	timeout, err := strconv.Atoi(raw)
	if err != nil || timeout <= 0 {
		return 10
	}
	return timeout
}
