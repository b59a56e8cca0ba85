// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"

	"github.com/prometheus/common/promslog"
)

// Setup installs a logfmt (or json) logger at the given level as the
// slog default and returns it.
func Setup(w io.Writer, levelStr, formatStr string) (*slog.Logger, error) {
	level := promslog.NewLevel()
	if err := level.Set(levelStr); err != nil {
		return nil, err
	}

	if formatStr == "" {
		formatStr = "logfmt"
	}
	format := promslog.NewFormat()
	if err := format.Set(formatStr); err != nil {
		return nil, err
	}

	logger := promslog.New(&promslog.Config{
		Level:  level,
		Format: format,
		Style:  promslog.SlogStyle,
		Writer: w,
	})
	slog.SetDefault(logger)
	return logger, nil
}
