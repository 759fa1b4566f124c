// Package observability provides the structured logger used across the
// pipeline.
package observability

import (
	"go.uber.org/zap"
)

// NewLogger builds a zap logger for the given environment: JSON output
// at info level in production, console output at debug level otherwise.
func NewLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
