package normalize

import (
	"regexp"
	"strings"
)

var (
	imageRe      = regexp.MustCompile(`!\[[^\]\n]*\]\([^)\n]*\)`)
	linkRe       = regexp.MustCompile(`\[([^\]\n]*)\]\([^)\n]*\)`)
	inlineCodeRe = regexp.MustCompile("`[^`\n]+`")
	headingRe    = regexp.MustCompile(`^[ \t]{0,3}#{1,6}(?:[ \t]+|$)`)
	quoteRe      = regexp.MustCompile(`^[ \t]*>[ \t]?`)
	listRe       = regexp.MustCompile(`^[ \t]*(?:[-*+]|\d{1,9}[.)])[ \t]+`)
	emphasisRe   = regexp.MustCompile(`\*\*|__`)
	spaceRe      = regexp.MustCompile(`[ \t\f\v\x{00a0}\x{3000}]+`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

const maxCleanPasses = 8

// Clean strips markdown markup and keeps prose in order. Line and sentence
// boundaries survive; Clean(Clean(x)) == Clean(x).
func Clean(text string) string {
	out := cleanOnce(text)
	for i := 0; i < maxCleanPasses; i++ {
		next := cleanOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func cleanOnce(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = stripFencedCode(text)
	text = imageRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = inlineCodeRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}
	text = strings.Join(lines, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func cleanLine(line string) string {
	if isTableSeparator(line) || isThematicBreak(line) {
		return ""
	}
	for {
		before := line
		line = headingRe.ReplaceAllString(line, "")
		line = quoteRe.ReplaceAllString(line, "")
		line = listRe.ReplaceAllString(line, "")
		if line == before {
			break
		}
	}
	line = strings.ReplaceAll(line, "|", " ")
	line = emphasisRe.ReplaceAllString(line, "")
	line = spaceRe.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// stripFencedCode drops ``` and ~~~ blocks. An unterminated fence is kept
// as text.
func stripFencedCode(text string) string {
	if !strings.Contains(text, "```") && !strings.Contains(text, "~~~") {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var fence string
	var pending []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if fence == "" {
			if m := fenceMarker(trimmed); m != "" {
				fence = m
				pending = []string{line}
				continue
			}
			out = append(out, line)
			continue
		}
		pending = append(pending, line)
		if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, fence[:1]) == "" {
			fence = ""
			pending = nil
		}
	}
	return strings.Join(append(out, pending...), "\n")
}

func fenceMarker(trimmed string) string {
	for _, ch := range []string{"`", "~"} {
		n := 0
		for n < len(trimmed) && trimmed[n] == ch[0] {
			n++
		}
		if n >= 3 {
			return trimmed[:n]
		}
	}
	return ""
}

func isTableSeparator(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.Contains(t, "|") || !strings.Contains(t, "-") {
		return false
	}
	return strings.Trim(t, "|:- \t") == ""
}

func isThematicBreak(line string) bool {
	t := strings.ReplaceAll(strings.TrimSpace(line), " ", "")
	if len(t) < 3 {
		return false
	}
	for _, ch := range []string{"-", "*", "_"} {
		if strings.Trim(t, ch) == "" {
			return true
		}
	}
	return false
}
