package render

import (
	"html/template"
	"regexp"
	"strings"
)

var boldPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)

// FormattedText renders the light markdown the guide and ask streams produce:
// "###" headers, "-" or "*" bullets and **bold** spans. Everything else is
// escaped, so model output can never inject markup.
func FormattedText(text string) template.HTML {
	var sb strings.Builder
	sb.WriteString(`<div class="ai-result-content">`)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			sb.WriteString("<br>")
		case strings.HasPrefix(trimmed, "###"):
			sb.WriteString("<h3>")
			sb.WriteString(template.HTMLEscapeString(strings.TrimSpace(strings.TrimLeft(trimmed, "#"))))
			sb.WriteString("</h3>")
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			sb.WriteString(`<li class="ml-4">`)
			writeBold(&sb, strings.TrimSpace(trimmed[2:]))
			sb.WriteString("</li>")
		default:
			sb.WriteString("<p>")
			writeBold(&sb, trimmed)
			sb.WriteString("</p>")
		}
	}
	sb.WriteString("</div>")
	return template.HTML(sb.String()) //nolint:gosec // every text fragment is escaped above
}

func writeBold(sb *strings.Builder, text string) {
	last := 0
	for _, m := range boldPattern.FindAllStringSubmatchIndex(text, -1) {
		sb.WriteString(template.HTMLEscapeString(text[last:m[0]]))
		sb.WriteString("<strong>")
		sb.WriteString(template.HTMLEscapeString(text[m[2]:m[3]]))
		sb.WriteString("</strong>")
		last = m[1]
	}
	sb.WriteString(template.HTMLEscapeString(text[last:]))
}
