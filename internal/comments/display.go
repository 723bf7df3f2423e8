package comments

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxDisplayLen  = 100
	emptyLabelText = "Empty comment"
)

var (
	displayStrip = []*regexp.Regexp{
		regexp.MustCompile(`^//\s*`),
		regexp.MustCompile(`^/\*+\s*`),
		regexp.MustCompile(`\s*\*+/$`),
		regexp.MustCompile(`^<!--\s*`),
		regexp.MustCompile(`\s*-->$`),
		regexp.MustCompile(`^#\s*`),
	}
	continuationStar = regexp.MustCompile(`^\s*\*\s?`)
)

// DisplayText shortens a comment for use as a tree label: delimiters are
// removed, block comment continuation stars are dropped and lines joined,
// and the result is capped at 100 characters.
func DisplayText(text string) string {
	cleaned := text
	for _, re := range displayStrip {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	if strings.Contains(text, "/*") && strings.Contains(text, "*/") {
		lines := strings.Split(cleaned, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(continuationStar.ReplaceAllString(line, ""))
		}
		cleaned = strings.TrimSpace(strings.Join(lines, " "))
	}

	if utf8.RuneCountInString(cleaned) > maxDisplayLen {
		return string([]rune(cleaned)[:maxDisplayLen-3]) + "..."
	}

	if cleaned == "" {
		return emptyLabelText
	}
	return cleaned
}
