package ptydriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripANSIRemovesColorAndBracketedPaste(t *testing.T) {
	in := "\x1b[?2004h\x1b[1;32m(gdb) \x1b[0mcontinue\x1b[?2004l"
	assert.Equal(t, "(gdb) continue", StripANSI(in))
}

func TestStripANSINoEscapesIsNoOp(t *testing.T) {
	assert.Equal(t, "plain output", StripANSI("plain output"))
}

func TestStripEchoRemovesFirstLineWhenItMatchesCommand(t *testing.T) {
	got := StripEcho("bt\n#0 main () at crash.c:10\n#1 0x1234 in foo ()", "bt")
	assert.Equal(t, "#0 main () at crash.c:10\n#1 0x1234 in foo ()", got)
}

func TestStripEchoLeavesOutputWhenFirstLineDoesNotMatch(t *testing.T) {
	got := StripEcho("#0 main () at crash.c:10", "bt")
	assert.Equal(t, "#0 main () at crash.c:10", got)
}

func TestStripEchoTrimsLeadingNewlines(t *testing.T) {
	got := StripEcho("\r\n\r\nbt\noutput", "bt")
	assert.Equal(t, "output", got)
}
