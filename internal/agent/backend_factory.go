package agent

import (
	"fmt"
	"time"

	"github.com/guiperry/dbgcopilot/internal/backend"
)

const defaultBackendTimeout = 10 * time.Second

// createBackend builds the requested debugger adapter for the given
// debugger name, covering the full debugger set the agent CLI exposes.
func createBackend(req *Request) (backend.Backend, error) {
	switch req.Debugger {
	case "gdb":
		return backend.NewGDB("gdb", nil, defaultBackendTimeout), nil
	case "rust-gdb":
		return backend.NewGDB("rust-gdb", nil, defaultBackendTimeout), nil
	case "lldb":
		return backend.NewLLDBAPI("lldb", req.Program, defaultBackendTimeout), nil
	case "rust-lldb", "lldb-rust":
		return backend.NewLLDBRust("lldb", req.Program, defaultBackendTimeout), nil
	case "delve":
		if req.Program == "" {
			return nil, fmt.Errorf("delve debugger requires a program path")
		}
		return backend.NewDelve("dlv", req.Program, defaultBackendTimeout), nil
	case "radare2":
		if req.Program == "" {
			return nil, fmt.Errorf("radare2 debugger requires a program path")
		}
		return backend.NewR2(req.Program), nil
	case "pdb":
		if req.Program == "" {
			return nil, fmt.Errorf("pdb debugger requires a Python script path")
		}
		return backend.NewPDB("python3", req.Program, nil, defaultBackendTimeout), nil
	case "jdb":
		return backend.NewJDB("jdb", req.MainClass, req.Classpath, req.Sourcepath, req.Program, defaultBackendTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported debugger: %s", req.Debugger)
	}
}

// prepareCommands returns the init commands the runner sends once the
// backend is ready: loading the program/core file for gdb-family and
// lldb-family backends. jdb's classpath/sourcepath/main-class are
// consumed at backend-construction time instead, so it returns nil here.
func prepareCommands(req *Request) []string {
	switch req.Debugger {
	case "gdb", "rust-gdb":
		var cmds []string
		if req.Program != "" {
			cmds = append(cmds, "file "+req.Program)
		}
		if req.Corefile != "" {
			cmds = append(cmds, "core-file "+req.Corefile)
		}
		return cmds
	case "lldb", "rust-lldb", "lldb-rust":
		switch {
		case req.Program != "" && req.Corefile != "":
			return []string{fmt.Sprintf("target create %s --core %s", req.Program, req.Corefile)}
		case req.Corefile != "":
			return []string{"target create --core " + req.Corefile}
		case req.Program != "":
			return []string{"target create " + req.Program}
		}
		return nil
	case "pdb":
		if req.Program != "" {
			return []string{"file " + req.Program}
		}
		return nil
	default:
		return nil
	}
}
