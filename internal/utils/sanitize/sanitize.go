package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag and attribute. bluemonday policies are safe for
// concurrent Sanitize calls once built; never mutate this one afterwards.
var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// Text strips markup from a note body and normalizes whitespace while keeping
// the line structure the user typed.
//
//   - "<p>Hello <b>world</b></p>" -> "Hello world"
//   - "line one  \n  line two" -> "line one\nline two"
//   - "**markdown** stays" -> "**markdown** stays"
func Text(s string) string {
	out := plain(s)

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Title is Text collapsed onto a single line.
func Title(s string) string {
	return strings.Join(strings.Fields(plain(s)), " ")
}

func plain(s string) string {
	if s == "" {
		return ""
	}
	out := strict.Sanitize(s)
	out = html.UnescapeString(out)
	out = strings.ReplaceAll(out, "\r\n", "\n")
	return strings.ReplaceAll(out, "\u00a0", " ")
}
