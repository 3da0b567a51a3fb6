package printing

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "param": true,
	"source": true, "track": true, "wbr": true,
}

// elements whose end tag the HTML parser infers
var optionalEndElements = map[string]bool{
	"html": true, "head": true, "body": true, "p": true, "li": true, "dt": true,
	"dd": true, "tr": true, "td": true, "th": true, "thead": true, "tbody": true,
	"tfoot": true, "option": true, "optgroup": true, "colgroup": true,
	"caption": true, "rt": true, "rp": true,
}

// ValidateMarkup rejects markup with unbalanced tags or closing tags that
// match no open element. Browsers silently repair such markup, which leads to
// truncated or misplaced content in the PDF.
func ValidateMarkup(markup string) error {
	if strings.TrimSpace(markup) == "" {
		return NewRenderError(ErrCodeInvalidHTML, "markup is empty", nil)
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	var open []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return NewRenderError(ErrCodeInvalidHTML, "markup could not be tokenized", z.Err())
			}
			for i := len(open) - 1; i >= 0; i-- {
				if !optionalEndElements[open[i]] {
					return NewRenderError(ErrCodeInvalidHTML, fmt.Sprintf("unclosed <%s>", open[i]), nil)
				}
			}
			return nil
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); !voidElements[tag] {
				open = append(open, tag)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			i := len(open) - 1
			for i >= 0 && open[i] != tag {
				i--
			}
			if i < 0 {
				return NewRenderError(ErrCodeInvalidHTML, fmt.Sprintf("unexpected closing tag </%s>", tag), nil)
			}
			for j := len(open) - 1; j > i; j-- {
				if !optionalEndElements[open[j]] {
					return NewRenderError(ErrCodeInvalidHTML,
						fmt.Sprintf("<%s> is not closed before </%s>", open[j], tag), nil)
				}
			}
			open = open[:i]
		}
	}
}

// ValidateStylesheet rejects stylesheets with unbalanced blocks or that the
// CSS parser cannot read. An empty stylesheet is valid.
func ValidateStylesheet(css string) error {
	if strings.TrimSpace(css) == "" {
		return nil
	}
	if err := checkBraces(css); err != nil {
		return NewRenderError(ErrCodeInvalidCSS, "stylesheet is malformed", err)
	}
	if _, err := parser.Parse(css); err != nil {
		return NewRenderError(ErrCodeInvalidCSS, "stylesheet could not be parsed", err)
	}
	return nil
}

func checkBraces(css string) error {
	depth, line := 0, 1
	var quote byte
	for i := 0; i < len(css); i++ {
		c := css[i]
		switch {
		case c == '\n':
			line++
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(css) && css[i+1] == '*':
			end := strings.Index(css[i+2:], "*/")
			if end < 0 {
				return fmt.Errorf("line %d: unterminated comment", line)
			}
			line += strings.Count(css[i:i+2+end], "\n")
			i += end + 3
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("line %d: unexpected '}'", line)
			}
		}
	}
	if quote != 0 {
		return errors.New("unterminated string")
	}
	if depth != 0 {
		return fmt.Errorf("%d unclosed block(s)", depth)
	}
	return nil
}
