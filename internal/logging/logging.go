package logging

import "go.uber.org/zap"

// New builds the process logger: JSON output in prod, console otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
