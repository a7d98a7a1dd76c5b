package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, LevelFromString("debug"))
	assert.Equal(t, zapcore.InfoLevel, LevelFromString("info"))
	assert.Equal(t, zapcore.WarnLevel, LevelFromString("warn"))
	assert.Equal(t, zapcore.ErrorLevel, LevelFromString("error"))
	assert.Equal(t, zapcore.InfoLevel, LevelFromString("nonsense"))
}
