package printing

import (
	"html"
	"strings"
)

// ComposeDocument wraps resolved markup into a complete HTML document with the
// stylesheet in its head. Complete documents keep their own structure and get
// the stylesheet inserted before </head>.
func ComposeDocument(title, css, body string) string {
	style := ""
	if strings.TrimSpace(css) != "" {
		style = "<style>\n" + css + "\n</style>"
	}

	lower := strings.ToLower(body)
	if strings.Contains(lower, "<html") {
		if i := strings.Index(lower, "</head>"); i >= 0 {
			return body[:i] + style + body[i:]
		}
		if i := strings.Index(lower, "<body"); i >= 0 {
			return body[:i] + "<head>" + style + "</head>" + body[i:]
		}
		return style + body
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n")
	if title != "" {
		b.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	}
	b.WriteString(style)
	b.WriteString("\n</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}
