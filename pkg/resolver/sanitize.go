package resolver

import (
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("(?s)^```[\\w-]*[ \\t]*\\r?\\n?(.*?)\\r?\\n?[ \\t]*```$")

// Sanitize strips the wrapping models like to add around an answer: code
// fences, backticks and surrounding quotes. Quotes are kept when the source
// itself was quoted.
func Sanitize(text, source string) string {
	text = strings.TrimSpace(text)

	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	for len(text) >= 2 && strings.HasPrefix(text, "`") && strings.HasSuffix(text, "`") {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}

	if !isQuoted(strings.TrimSpace(source)) {
		for isQuoted(text) {
			text = strings.TrimSpace(unquote(text))
		}
	}

	return text
}
