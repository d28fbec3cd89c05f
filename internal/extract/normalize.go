package extract

import (
	"regexp"
	"strings"
)

var (
	multiWhitespaceRe = regexp.MustCompile(`\s{2,}`)
	blankLinesRe      = regexp.MustCompile(`\n\s*\n+`)
	notificationRe    = regexp.MustCompile(`(?i)notification`)
	annexure1Re       = regexp.MustCompile(`(?i)annexure\s*1`)
	annexure2Re       = regexp.MustCompile(`(?i)annexure\s*2`)
)

// NormalizeModalText cleans the raw modal body text: runs of whitespace
// collapse to one space, blank lines collapse, lines are trimmed and empty
// ones dropped, and known line kinds gain a prefix tag.
func NormalizeModalText(raw string) string {
	s := multiWhitespaceRe.ReplaceAllString(raw, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, tagLine(line))
	}
	return strings.Join(lines, "\n")
}

// tagLine rewrites known line kinds. Order matters: a line mentioning both
// "notification" and an annexure is tagged as a notification, matching the
// source's labeling.
func tagLine(line string) string {
	if notificationRe.MatchString(line) {
		return "- Notification: " + line
	}
	if loc := annexure1Re.FindStringIndex(line); loc != nil {
		return "- Annexure 1: " + strings.TrimSpace(line[:loc[0]]+line[loc[1]:])
	}
	if loc := annexure2Re.FindStringIndex(line); loc != nil {
		return "- Annexure 2: " + strings.TrimSpace(line[:loc[0]]+line[loc[1]:])
	}
	return line
}
