package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCommandsNewlinesAndSemicolons(t *testing.T) {
	got := splitCommands("bt\nprint x; continue", "")
	assert.Equal(t, []string{"bt", "print x", "continue"}, got)
}

func TestSplitCommandsEmpty(t *testing.T) {
	assert.Nil(t, splitCommands("   ", ""))
	assert.Nil(t, splitCommands("", ""))
}

func TestSplitCommandsNoSplitPrefixKeepsLineIntact(t *testing.T) {
	got := splitCommands("script print(1;2)\nbt", "script ")
	assert.Equal(t, []string{"script print(1;2)", "bt"}, got)
}

func TestSplitCommandsFallsBackToWholeTextWhenNothingSurvives(t *testing.T) {
	got := splitCommands(";;;", "")
	assert.Equal(t, []string{";;;"}, got)
}
