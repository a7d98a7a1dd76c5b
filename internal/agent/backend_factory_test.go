package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiperry/dbgcopilot/internal/backend"
)

func TestCreateBackendDispatchesOnDebuggerName(t *testing.T) {
	b, err := createBackend(&Request{Debugger: "gdb"})
	require.NoError(t, err)
	assert.IsType(t, &backend.GDBBackend{}, b)

	b, err = createBackend(&Request{Debugger: "rust-gdb"})
	require.NoError(t, err)
	assert.IsType(t, &backend.GDBBackend{}, b)

	b, err = createBackend(&Request{Debugger: "lldb", Program: "/bin/true"})
	require.NoError(t, err)
	assert.IsType(t, &backend.LLDBAPIBackend{}, b)

	b, err = createBackend(&Request{Debugger: "rust-lldb", Program: "/bin/true"})
	require.NoError(t, err)
	assert.IsType(t, &backend.LLDBRustBackend{}, b)

	b, err = createBackend(&Request{Debugger: "delve", Program: "/bin/true"})
	require.NoError(t, err)
	assert.IsType(t, &backend.DelveBackend{}, b)

	b, err = createBackend(&Request{Debugger: "radare2", Program: "/bin/true"})
	require.NoError(t, err)
	assert.IsType(t, &backend.R2Backend{}, b)

	b, err = createBackend(&Request{Debugger: "pdb", Program: "script.py"})
	require.NoError(t, err)
	assert.IsType(t, &backend.PDBBackend{}, b)

	b, err = createBackend(&Request{Debugger: "jdb", MainClass: "Main"})
	require.NoError(t, err)
	assert.IsType(t, &backend.JDBBackend{}, b)
}

func TestCreateBackendRejectsUnsupportedDebugger(t *testing.T) {
	_, err := createBackend(&Request{Debugger: "unknown-debugger"})
	assert.Error(t, err)
}

func TestCreateBackendRequiresProgramForDelveRadare2Pdb(t *testing.T) {
	_, err := createBackend(&Request{Debugger: "delve"})
	assert.Error(t, err)

	_, err = createBackend(&Request{Debugger: "radare2"})
	assert.Error(t, err)

	_, err = createBackend(&Request{Debugger: "pdb"})
	assert.Error(t, err)
}

func TestPrepareCommandsGDBFamily(t *testing.T) {
	cmds := prepareCommands(&Request{Debugger: "gdb", Program: "/bin/true", Corefile: "core.1234"})
	assert.Equal(t, []string{"file /bin/true", "core-file core.1234"}, cmds)

	cmds = prepareCommands(&Request{Debugger: "rust-gdb", Program: "/bin/true"})
	assert.Equal(t, []string{"file /bin/true"}, cmds)

	assert.Nil(t, prepareCommands(&Request{Debugger: "gdb"}))
}

func TestPrepareCommandsLLDBFamily(t *testing.T) {
	cmds := prepareCommands(&Request{Debugger: "lldb", Program: "/bin/true", Corefile: "core.1234"})
	assert.Equal(t, []string{"target create /bin/true --core core.1234"}, cmds)

	cmds = prepareCommands(&Request{Debugger: "rust-lldb", Corefile: "core.1234"})
	assert.Equal(t, []string{"target create --core core.1234"}, cmds)

	cmds = prepareCommands(&Request{Debugger: "lldb-rust", Program: "/bin/true"})
	assert.Equal(t, []string{"target create /bin/true"}, cmds)

	assert.Nil(t, prepareCommands(&Request{Debugger: "lldb"}))
}

func TestPrepareCommandsPDBAndDefault(t *testing.T) {
	cmds := prepareCommands(&Request{Debugger: "pdb", Program: "script.py"})
	assert.Equal(t, []string{"file script.py"}, cmds)

	assert.Nil(t, prepareCommands(&Request{Debugger: "pdb"}))
	assert.Nil(t, prepareCommands(&Request{Debugger: "jdb", MainClass: "Main"}))
	assert.Nil(t, prepareCommands(&Request{Debugger: "radare2", Program: "/bin/true"}))
}
