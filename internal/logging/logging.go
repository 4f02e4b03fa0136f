package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a JSON production logger for "production" and a console
// development logger for anything else, at the given level.
func New(level, environment string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build(zap.Fields(zap.String("service", "simpleboard")))
}
