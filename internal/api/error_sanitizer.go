package api

import (
	"net/http"

	"github.com/ignite/bulletin-sync/internal/pkg/httputil"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// sanitizedError logs the full internal error and returns a public-safe
// message. Upstream errors can carry credentials or contact data, so they
// never reach the response body.
func sanitizedError(code int, internalErr error, publicMsg string) string {
	if internalErr != nil {
		logger.Error("request failed", "status", code, "message", publicMsg, "error", internalErr)
	}
	return publicMsg
}

// respondSafeError logs the internal error and sends a sanitized JSON error
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string) {
	httputil.Error(w, code, sanitizedError(code, internalErr, publicMsg))
}
