package backend

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeR2Script is a minimal stand-in for the real r2 binary's -q0 pipe
// protocol: every line read from stdin gets an "ok" response terminated
// by a NUL byte, except "q" which kills the process without responding,
// simulating an unexpected exit mid-session.
const fakeR2Script = `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    q) exit 0 ;;
    *) printf 'ok'; printf '\0' ;;
  esac
done
`

// fakeR2CrashScript answers the initialization commands (the "e ..."
// settings and the initial seek "s") and dies on any other command,
// simulating a crash that isn't one of the user-issued exit commands.
const fakeR2CrashScript = `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    "e "*|s) printf 'ok'; printf '\0' ;;
    *) exit 1 ;;
  esac
done
`

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-r2.sh")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func writeFakeR2Script(t *testing.T) string {
	t.Helper()
	return writeScript(t, fakeR2Script)
}

func TestR2BackendHandlesExitCommand(t *testing.T) {
	r := &R2Backend{name: "radare2", binary: "dummy", r2Path: writeFakeR2Script(t), stderrBuf: newRingBuffer(50)}
	require.NoError(t, r.Initialize())
	defer r.Close()

	out := r.RunCommand("q", time.Second)
	assert.Equal(t, "[radare2] session restarted; ready for commands", out)

	out2 := r.RunCommand("aa", time.Second)
	assert.Contains(t, out2, "ok")
}

func TestR2BackendHandlesExitCommandCaseInsensitivelyAndUppercase(t *testing.T) {
	r := &R2Backend{name: "radare2", binary: "dummy", r2Path: writeFakeR2Script(t), stderrBuf: newRingBuffer(50)}
	require.NoError(t, r.Initialize())
	defer r.Close()

	out := r.RunCommand("QUIT", time.Second)
	assert.Equal(t, "[radare2] session restarted; ready for commands", out)
}

func TestR2BackendRestartsOnUnexpectedProcessDeath(t *testing.T) {
	r := &R2Backend{name: "radare2", binary: "dummy", r2Path: writeScript(t, fakeR2CrashScript), stderrBuf: newRingBuffer(50)}
	require.NoError(t, r.Initialize())
	defer r.Close()

	out := r.RunCommand("aa", time.Second)
	assert.Contains(t, out, "process died; session restarted")
}

func TestRadare2PathDefaultsToR2(t *testing.T) {
	os.Unsetenv("R2PIPE_PATH")
	assert.Equal(t, "r2", radare2Path())
}

func TestRadare2PathHonorsEnv(t *testing.T) {
	t.Setenv("R2PIPE_PATH", "/opt/radare2/bin/r2")
	assert.Equal(t, "/opt/radare2/bin/r2", radare2Path())
}

func TestR2BackendPromptDefaultsToZeroSeek(t *testing.T) {
	r := NewR2("/bin/true")
	assert.Equal(t, "[0x00000000]> ", r.Prompt())
	r.lastSeek = "0x00400000"
	assert.Equal(t, "[0x00400000]> ", r.Prompt())
}

func TestRingBufferBoundedFIFO(t *testing.T) {
	rb := newRingBuffer(3)
	rb.push("a")
	rb.push("b")
	rb.push("c")
	rb.push("d")
	assert.Equal(t, []string{"b", "c", "d"}, rb.drain())
	assert.Empty(t, rb.drain())
}
