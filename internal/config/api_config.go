package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	baseURLVar             = "IMAGEN_API_URL"
	refreshPathVar         = "IMAGEN_REFRESH_PATH"
	authFailureStatusesVar = "IMAGEN_AUTH_FAILURE_STATUSES" // comma separated, e.g. "401,403"
	requestTimeoutVar      = "IMAGEN_REQUEST_TIMEOUT"
	refreshTimeoutVar      = "IMAGEN_REFRESH_TIMEOUT"
	refreshLockFileVar     = "IMAGEN_REFRESH_LOCK_FILE"
)

type API struct {
	file *fileConfig
}

var _ APIConfig = API{}

func (a API) GetBaseURL() string {
	return strings.TrimRight(lookup(baseURLVar, a.file.API.BaseURL, "http://localhost:8000"), "/")
}

func (a API) GetRefreshPath() string {
	return lookup(refreshPathVar, a.file.API.RefreshPath, "/refresh-token")
}

// GetAuthFailureStatuses lists the status codes treated as an expired access token.
func (a API) GetAuthFailureStatuses() []int {
	if raw := os.Getenv(authFailureStatusesVar); raw != "" {
		var statuses []int
		for _, part := range strings.Split(raw, ",") {
			code, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			statuses = append(statuses, code)
		}
		if len(statuses) > 0 {
			return statuses
		}
	}
	if len(a.file.API.AuthFailureStatuses) > 0 {
		return a.file.API.AuthFailureStatuses
	}
	return []int{401}
}

func (a API) GetRequestTimeout() time.Duration {
	return lookupDuration(requestTimeoutVar, a.file.API.RequestTimeout, 60*time.Second)
}

func (a API) GetRefreshTimeout() time.Duration {
	return lookupDuration(refreshTimeoutVar, a.file.API.RefreshTimeout, 15*time.Second)
}

// GetRefreshLockFile is the file locked while a refresh runs so that several
// processes sharing one session do not rotate the refresh token concurrently.
func (a API) GetRefreshLockFile() string {
	return lookup(refreshLockFileVar, a.file.API.RefreshLockFile, filepath.Join(EnvVars(a).GetDataFolder(), "refresh.lock"))
}
