package orchestrator

import (
	"regexp"
	"strings"
)

// cmdTagRe matches the single distinguished <cmd>...</cmd> directive:
// case-insensitive, non-greedy, first match only.
var cmdTagRe = regexp.MustCompile(`(?is)<cmd>\s*(.*?)\s*</cmd>`)

// extractCmd returns the first <cmd>...</cmd> body in reply, the reply
// with that tag (and only that tag) stripped, and whether a match was
// found.
func extractCmd(reply string) (cmd string, explanation string, found bool) {
	loc := cmdTagRe.FindStringSubmatchIndex(reply)
	if loc == nil {
		return "", reply, false
	}
	cmd = reply[loc[2]:loc[3]]
	explanation = reply[:loc[0]] + reply[loc[1]:]
	return cmd, explanation, true
}

var chineseCharRe = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)

var chinesePhrases = []string{
	"in chinese", "中文", "用中文", "中文回答", "请用中文", "中文解释",
}

// wantsChinese reports whether text explicitly asks for a Chinese
// reply or already contains CJK characters.
func wantsChinese(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range chinesePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return chineseCharRe.MatchString(text)
}
