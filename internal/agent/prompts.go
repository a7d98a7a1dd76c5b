package agent

// promptConfig bundles the system preamble, rules, and followup
// instruction the agent loop uses to build each step's prompt, mirroring
// the REPL orchestrator's prompt config but tuned for a non-interactive
// run (no confirmation language, an explicit followup instruction).
type promptConfig struct {
	SystemPreamble      string
	Rules               []string
	FollowupInstruction string
	MaxSteps            int
}

func defaultPromptConfig() promptConfig {
	return promptConfig{
		SystemPreamble: "You are an autonomous debugging agent embedded inside {debugger}.\n" +
			"You investigate independently: propose exactly one <cmd>command</cmd> per turn when you " +
			"need the debugger to act, or write your conclusions directly when you are done.\n",
		Rules: []string{
			"Prefer the suitable and reasonable command(s) for the situation.",
			"Never fabricate output; quote exact snippets from tool results.",
			"Keep answers concise and actionable.",
			"Wrap exactly one command in <cmd>...</cmd>; never chain multiple commands with ';'.",
			"When you have reached a conclusion, reply with the final report and omit <cmd> entirely.",
		},
		FollowupInstruction: "Continue the investigation. If you need to run a command, wrap it in " +
			"<cmd>...</cmd>. Otherwise, provide your final report.",
		MaxSteps: DefaultMaxSteps,
	}
}
