package customization

import "strings"

// dangerousTokens is the anti-gadget deny-list from spec.md §4.3: content
// that could let a customization reach outside its own text substitution
// (process execution, script injection, server-side includes).
var dangerousTokens = []string{
	"<%", "%>",
	"Runtime.getRuntime",
	"ProcessBuilder",
	"System.exit(",
	"<script",
	"javascript:",
	"file://",
	"exec(",
	"<!--#",
}

// findDangerousToken returns the first forbidden token present in s, or ""
// if s is clean.
func findDangerousToken(s string) string {
	for _, tok := range dangerousTokens {
		if strings.Contains(s, tok) {
			return tok
		}
	}
	return ""
}
