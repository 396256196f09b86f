// Package httputil provides the JSON response helpers used by the trigger API
// handlers, so every endpoint shares one error envelope and logs through the
// structured logger.
package httputil
