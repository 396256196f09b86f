package runner

import "errors"

// ErrNotConfigured is returned for a path whose collaborator is not set up
var ErrNotConfigured = errors.New("run path not configured")
