package agent

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sessionLog is a plaintext, append-only per-run log ("--log-session" /
// "--log-file" in the CLI flags), one timestamped line per entry.
type sessionLog struct {
	logger *zap.Logger
	path   string
}

// newSessionLog opens (creating parent directories as needed) a
// plaintext log file at path. A nil *sessionLog is a valid no-op logger.
func newSessionLog(path string) (*sessionLog, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	encCfg := zapcore.EncoderConfig{
		MessageKey:  "msg",
		TimeKey:     "ts",
		EncodeTime:  zapcore.ISO8601TimeEncoder,
		EncodeLevel: zapcore.CapitalLevelEncoder,
		LineEnding:  zapcore.DefaultLineEnding,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zapcore.InfoLevel)
	return &sessionLog{logger: zap.New(core), path: path}, nil
}

func (s *sessionLog) info(msg string) {
	if s == nil {
		return
	}
	s.logger.Info(msg)
}

func (s *sessionLog) close() {
	if s == nil {
		return
	}
	_ = s.logger.Sync()
}
