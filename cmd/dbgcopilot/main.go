// Package main is the interactive terminal REPL front-end: a
// "copilot> " prompt loop over the shared orchestrator, backend, and
// provider registry, offering a slash-command surface plus free-form
// natural-language questions.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/guiperry/dbgcopilot/internal/backend"
	"github.com/guiperry/dbgcopilot/internal/config"
	"github.com/guiperry/dbgcopilot/internal/orchestrator"
	"github.com/guiperry/dbgcopilot/internal/params"
	"github.com/guiperry/dbgcopilot/internal/providers"
	"github.com/guiperry/dbgcopilot/internal/session"
)

const promptDir = "configs"
const defaultTimeout = 10 * time.Second

func main() {
	debugger := flag.String("debugger", "gdb", "Debugger backend: gdb, lldb, lldb-rust, jdb, pdb, delve, radare2")
	program := flag.String("program", "", "Path to the binary (or script) under test")
	corefile := flag.String("core", "", "Path to a core dump")
	goal := flag.String("goal", "", "Initial session goal description")
	providerName := flag.String("provider", "", "Initial LLM provider")
	flag.Parse()

	reg, err := providers.NewRegistry("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "dbgcopilot: loading provider registry: %v\n", err)
		os.Exit(1)
	}

	r := &repl{reg: reg, program: *program, corefile: *corefile}
	if err := r.useDebugger(*debugger); err != nil {
		fmt.Fprintf(os.Stderr, "dbgcopilot: %v\n", err)
		os.Exit(1)
	}
	r.state.Goal = *goal
	r.state.ProviderName = *providerName
	r.state.SelectedProvider = *providerName

	r.run()
}

// repl holds the shared state across debugger/orchestrator swaps
// triggered by /use and /new.
type repl struct {
	reg      *providers.Registry
	state    *session.State
	orch     *orchestrator.Orchestrator
	program  string
	corefile string
}

func (r *repl) useDebugger(name string) error {
	b, err := createREPLBackend(name, r.program, r.corefile)
	if err != nil {
		return err
	}
	if err := b.Initialize(); err != nil {
		return fmt.Errorf("initializing %s backend: %w", name, err)
	}
	if r.state == nil {
		r.state = session.New("", "")
	}
	r.orch = orchestrator.New(b, r.state, r.reg, promptDir)
	return nil
}

func createREPLBackend(name, program, corefile string) (backend.Backend, error) {
	switch name {
	case "gdb":
		b := backend.NewGDB("gdb", nil, defaultTimeout)
		return b, prepGDBLike(b, program, corefile)
	case "lldb":
		b := backend.NewLLDBAPI("lldb", program, defaultTimeout)
		return b, nil
	case "lldb-rust":
		b := backend.NewLLDBRust("lldb", program, defaultTimeout)
		return b, nil
	case "jdb":
		return backend.NewJDB("jdb", "", "", "", "", defaultTimeout), nil
	case "pdb":
		if program == "" {
			return nil, fmt.Errorf("pdb debugger requires --program")
		}
		return backend.NewPDB("python3", program, nil, defaultTimeout), nil
	case "delve":
		if program == "" {
			return nil, fmt.Errorf("delve debugger requires --program")
		}
		return backend.NewDelve("dlv", program, defaultTimeout), nil
	case "radare2":
		if program == "" {
			return nil, fmt.Errorf("radare2 debugger requires --program")
		}
		return backend.NewR2(program), nil
	default:
		return nil, fmt.Errorf("unsupported debugger: %s", name)
	}
}

func prepGDBLike(b backend.Backend, program, corefile string) error {
	if program != "" {
		b.RunCommand("file "+program, 0)
	}
	if corefile != "" {
		b.RunCommand("core-file "+corefile, 0)
	}
	return nil
}

func (r *repl) run() {
	fmt.Println("[copilot] Entering copilot> (type '/help' or 'exit' to leave)")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	ctx := context.Background()

	for {
		fmt.Print("copilot> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Println("[copilot] Exiting copilot>")
			break
		}
		if strings.HasPrefix(line, "/") {
			r.dispatch(ctx, line)
			continue
		}
		fmt.Println(r.orch.Ask(ctx, line))
	}
}

func (r *repl) dispatch(ctx context.Context, line string) {
	parts := strings.SplitN(line, " ", 2)
	verb := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch verb {
	case "/help", "/h":
		fmt.Println(helpText())
	case "/use":
		r.cmdUse(arg)
	case "/new":
		r.state.Rotate()
		fmt.Printf("[copilot] New session: %s\n", r.state.SessionID)
	case "/chatlog":
		r.cmdChatlog()
	case "/config":
		fmt.Printf("[copilot] Config: %v\n", r.state.Config)
		fmt.Printf("[copilot] Selected provider: %s\n", r.state.SelectedProvider)
		presets := config.LoadPresets(promptDir)
		names := make([]string, 0, len(presets))
		for name := range presets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("[copilot] Preset: %s\n", name)
		}
	case "/colors":
		r.cmdColors(arg)
	case "/auto":
		r.cmdAuto(arg)
	case "/prompts":
		r.cmdPrompts(arg)
	case "/exec":
		r.cmdExec(arg)
	case "/llm":
		r.cmdLLM(ctx, arg)
	default:
		fmt.Println("[copilot] Unknown slash command. Try /help")
	}
}

func helpText() string {
	lines := []string{
		"copilot> commands:",
		"  /help                      Show this help",
		"  /use <debugger>            Switch debugger backend (gdb, lldb, lldb-rust, jdb, pdb, delve, radare2)",
		"  /new                       Start a new copilot session",
		"  /chatlog                   Show chat Q/A transcript",
		"  /config                    Show current config",
		"  /auto [on|off|toggle|status]  Control auto-accept mode",
		"  /colors [on|off]           Toggle colored output (default on)",
		"  /prompts show              Show current prompt config",
		"  /prompts reload            Reload prompts from configs/prompts.json",
		"  /exec <cmd>                Run a debugger command and record output",
		"  /llm list                         List available LLM providers",
		"  /llm use <name>                   Switch to a provider",
		"  /llm models [provider]            List models for provider",
		"  /llm model get|set|session ...    Get/set model overrides",
		"  /llm provider list|path|reload|show|get|set|add ...  Manage provider entries",
		"  /llm params list|get|set|clear ... Manage parameter overrides",
		"  /llm key <provider> <api_key>     Set API key for provider",
		"  exit or quit               Leave copilot>",
		"Any other input is treated as a natural language question to the LLM.",
	}
	return strings.Join(lines, "\n")
}

func (r *repl) cmdUse(arg string) {
	if arg == "" {
		fmt.Println("Usage: /use <debugger>")
		return
	}
	if err := r.useDebugger(arg); err != nil {
		fmt.Printf("[copilot] %v\n", err)
		return
	}
	fmt.Printf("[copilot] Switched to debugger: %s\n", arg)
}

func (r *repl) cmdChatlog() {
	if len(r.state.Chatlog) == 0 {
		fmt.Println("[copilot] No chat yet.")
		return
	}
	log := r.state.Chatlog
	if len(log) > 200 {
		log = log[len(log)-200:]
	}
	for _, line := range log {
		fmt.Println(line)
	}
}

func (r *repl) cmdColors(arg string) {
	switch strings.ToLower(arg) {
	case "on", "off":
		r.state.ColorsEnabled = arg == "on"
		fmt.Printf("[copilot] Colors %s\n", onOff(r.state.ColorsEnabled))
	case "":
		fmt.Printf("[copilot] Colors are currently %s\n", onOff(r.state.ColorsEnabled))
	default:
		fmt.Println("Usage: /colors [on|off]")
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (r *repl) cmdAuto(arg string) {
	switch strings.ToLower(arg) {
	case "on":
		limit := session.DefaultAutoRoundLimit
		r.state.AutoAcceptCommands = true
		r.state.AutoRoundsRemaining = &limit
		fmt.Println("[copilot] Auto-accept enabled.")
	case "off":
		r.state.AutoAcceptCommands = false
		r.state.AutoRoundsRemaining = nil
		fmt.Println("[copilot] Auto-accept disabled.")
	case "toggle":
		if r.state.AutoAcceptCommands {
			r.cmdAuto("off")
		} else {
			r.cmdAuto("on")
		}
	case "status", "":
		if r.state.AutoAcceptCommands {
			remaining := "unbounded"
			if r.state.AutoRoundsRemaining != nil {
				remaining = fmt.Sprintf("%d", *r.state.AutoRoundsRemaining)
			}
			fmt.Printf("[copilot] Auto-accept is on (%s rounds remaining).\n", remaining)
		} else {
			fmt.Println("[copilot] Auto-accept is off.")
		}
	default:
		fmt.Println("Usage: /auto [on|off|toggle|status]")
	}
}

func (r *repl) cmdPrompts(arg string) {
	switch strings.ToLower(arg) {
	case "show":
		cfg := r.orch.GetPromptConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Printf("[copilot] Prompt source: %s\n%s\n", r.orch.PromptSource, string(data))
	case "reload":
		fmt.Println(r.orch.ReloadPrompts(promptDir))
	default:
		fmt.Println("Usage: /prompts show | /prompts reload")
	}
}

func (r *repl) cmdExec(arg string) {
	if arg == "" {
		fmt.Println("[copilot] Usage: /exec <debugger-cmd>")
		return
	}
	out := r.orch.Backend.RunCommand(arg, 0)
	r.state.LastOutput = out
	r.state.PushAttempt(arg, out)
	fmt.Printf("%s> %s\n%s\n", r.orch.Backend.Name(), arg, out)
}

func (r *repl) cmdLLM(ctx context.Context, arg string) {
	parts := strings.Fields(arg)
	action := ""
	var rest []string
	if len(parts) > 0 {
		action = parts[0]
		rest = parts[1:]
	}

	switch action {
	case "list":
		fmt.Println("Available LLM providers:")
		for _, p := range r.reg.List() {
			fmt.Printf("- %s\n", p)
		}
	case "use":
		r.llmUse(rest)
	case "models":
		r.llmModels(rest)
	case "model":
		r.llmModel(rest)
	case "provider":
		r.llmProvider(rest)
	case "params":
		r.llmParams(rest)
	case "key":
		r.llmKey(rest)
	default:
		fmt.Println("Usage: /llm list | use <name> | models [provider] | model ... | provider ... | params ... | key <provider> <api_key>")
	}
}

func (r *repl) llmUse(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: /llm use <name>")
		return
	}
	name := args[0]
	if _, ok := r.reg.Get(name); !ok {
		fmt.Printf("[copilot] Unknown provider: %s\n", name)
		return
	}
	r.state.SelectedProvider = name
	r.state.ProviderName = name
	fmt.Printf("[copilot] Selected provider: %s\n", name)
}

func (r *repl) llmModels(args []string) {
	name := r.state.SelectedProvider
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		fmt.Println("[copilot] No provider selected. Use /llm use <name> first or pass a provider.")
		return
	}
	models, err := r.reg.ListModels(name, r.sessionConfig(name))
	if err != nil {
		fmt.Printf("[copilot] Error listing models: %v\n", err)
		return
	}
	if len(models) == 0 {
		fmt.Println("[copilot] No models returned. You may need to set an API key, or this provider does not support listing.")
		return
	}
	fmt.Printf("%s models:\n", name)
	for _, m := range models {
		fmt.Printf("- %s\n", m)
	}
}

func (r *repl) llmModel(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: /llm model get | /llm model set [provider] <model> | /llm model session <model>")
		return
	}
	switch args[0] {
	case "get":
		fmt.Printf("[copilot] Model override: %s\n", orNone(r.state.ModelOverride))
	case "session":
		if len(args) < 2 {
			fmt.Println("Usage: /llm model session <model>")
			return
		}
		r.state.ModelOverride = strings.Join(args[1:], " ")
		fmt.Printf("[copilot] Session model override set to: %s\n", r.state.ModelOverride)
	case "set":
		provider, model := r.state.SelectedProvider, ""
		switch {
		case len(args) == 2:
			model = args[1]
		case len(args) >= 3:
			provider = args[1]
			model = strings.Join(args[2:], " ")
		}
		if provider == "" || model == "" {
			fmt.Println("Usage: /llm model set [provider] <model>")
			return
		}
		key := strings.ReplaceAll(provider, "-", "_") + "_model"
		r.state.Config[key] = model
		fmt.Printf("[copilot] %s model set to: %s\n", provider, model)
	default:
		fmt.Println("Usage: /llm model get | set [provider] <model> | session <model>")
	}
}

func (r *repl) llmProvider(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: /llm provider list|path|reload|show|get|set|add ...")
		return
	}
	switch args[0] {
	case "list":
		names := r.reg.List()
		sort.Strings(names)
		for _, n := range names {
			fmt.Println(n)
		}
	case "path":
		fmt.Println("[copilot] Provider registry path is configured via DBGCOPILOT_LLM_PROVIDERS or configs/llm_providers.json.")
	case "reload":
		if err := r.reg.Reload(); err != nil {
			fmt.Printf("[copilot] Error reloading registry: %v\n", err)
			return
		}
		fmt.Println("[copilot] Provider registry reloaded.")
	case "show":
		if len(args) < 2 {
			fmt.Println("Usage: /llm provider show <name>")
			return
		}
		entry, err := r.reg.Config(args[1])
		if err != nil {
			fmt.Printf("[copilot] %v\n", err)
			return
		}
		data, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Println(string(data))
	case "get":
		if len(args) < 3 {
			fmt.Println("Usage: /llm provider get <name> <field>")
			return
		}
		entry, err := r.reg.Config(args[1])
		if err != nil {
			fmt.Printf("[copilot] %v\n", err)
			return
		}
		if v, ok := entry.Get(args[2]); ok {
			fmt.Println(v)
		} else {
			fmt.Printf("[copilot] unknown field: %s\n", args[2])
		}
	case "set":
		if len(args) < 4 {
			fmt.Println("Usage: /llm provider set <name> <field> <value>")
			return
		}
		if err := r.reg.SetField(args[1], args[2], strings.Join(args[3:], " ")); err != nil {
			fmt.Printf("[copilot] %v\n", err)
			return
		}
		fmt.Println("[copilot] Provider updated.")
	case "add":
		if len(args) < 4 {
			fmt.Println("Usage: /llm provider add <name> <base_url> <default_model> [description]")
			return
		}
		desc := ""
		if len(args) > 4 {
			desc = strings.Join(args[4:], " ")
		}
		if _, err := r.reg.Add(args[1], args[2], "", args[3], desc); err != nil {
			fmt.Printf("[copilot] %v\n", err)
			return
		}
		fmt.Printf("[copilot] Provider added: %s\n", args[1])
	default:
		fmt.Println("Usage: /llm provider list|path|reload|show|get|set|add ...")
	}
}

func (r *repl) llmParams(args []string) {
	provider := r.state.SelectedProvider
	if provider == "" {
		fmt.Println("[copilot] No provider selected. Use /llm use <name> first.")
		return
	}
	key := session.ProviderParamsKey(provider)
	stored, _ := r.state.Config[key].(map[string]any)

	if len(args) == 0 {
		fmt.Println("Usage: /llm params list|get|set|clear ...")
		return
	}
	switch args[0] {
	case "list":
		if len(stored) == 0 {
			fmt.Println("[copilot] No parameter overrides set.")
			return
		}
		for k, v := range stored {
			fmt.Printf("%s = %v\n", k, v)
		}
	case "get":
		if len(args) < 2 {
			fmt.Println("Usage: /llm params get <name>")
			return
		}
		canonical := params.Canonicalize(args[1], nil)
		if v, ok := stored[canonical]; ok {
			fmt.Printf("%s = %v\n", canonical, v)
		} else {
			fmt.Printf("%s is unset\n", canonical)
		}
	case "set":
		if len(args) < 3 {
			fmt.Println("Usage: /llm params set <name> <value>")
			return
		}
		canonical, value, err := params.ParseValue(args[1], strings.Join(args[2:], " "), nil)
		if err != nil {
			fmt.Printf("[copilot] %v\n", err)
			return
		}
		if stored == nil {
			stored = make(map[string]any)
		}
		if _, clear := value.(params.ClearValue); clear {
			delete(stored, canonical)
		} else {
			stored[canonical] = value
		}
		r.state.Config[key] = stored
		fmt.Printf("[copilot] %s = %v\n", canonical, value)
	case "clear":
		if len(args) >= 2 && args[1] == "all" {
			params.ClearAll(stored)
			fmt.Println("[copilot] Cleared all parameter overrides.")
			return
		}
		if len(args) < 2 {
			fmt.Println("Usage: /llm params clear <name>|all")
			return
		}
		canonical := params.Canonicalize(args[1], nil)
		delete(stored, canonical)
		fmt.Printf("[copilot] Cleared %s.\n", canonical)
	default:
		fmt.Println("Usage: /llm params list|get|set|clear ...")
	}
}

func (r *repl) llmKey(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: /llm key <provider> <api_key>")
		return
	}
	provider := args[0]
	apiKey := strings.Join(args[1:], " ")
	if _, ok := r.reg.Get(provider); !ok {
		fmt.Printf("[copilot] Unknown provider: %s\n", provider)
		return
	}
	key := strings.ReplaceAll(provider, "-", "_") + "_api_key"
	r.state.Config[key] = apiKey
	fmt.Printf("[copilot] %s API key set for this session.\n", provider)
}

func (r *repl) sessionConfig(provider string) map[string]any {
	out := make(map[string]any, len(r.state.Config)+2)
	for k, v := range r.state.Config {
		out[k] = v
	}
	key := strings.ReplaceAll(provider, "-", "_")
	if r.state.ProviderAPIKey != "" {
		out[key+"_api_key"] = r.state.ProviderAPIKey
	}
	if r.state.ModelOverride != "" {
		out[key+"_model"] = r.state.ModelOverride
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
