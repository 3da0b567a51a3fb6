package templating

import (
	"strings"
	"unicode"

	"github.com/docforge/backend/internal/domain/printing"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokOutput
	tokTag
	tokComment
)

type token struct {
	kind      tokenKind
	val       string
	line      int
	trimLeft  bool
	trimRight bool
}

var delimiters = map[string]struct {
	kind  tokenKind
	close string
}{
	"{{": {tokOutput, "}}"},
	"{%": {tokTag, "%}"},
	"{#": {tokComment, "#}"},
}

// lex splits template source into text and delimited blocks.
// A leading or trailing "-" inside a delimiter strips the adjacent whitespace.
func lex(src string) ([]token, error) {
	var toks []token
	line := 1
	for len(src) > 0 {
		i := nextDelimiter(src)
		if i < 0 {
			toks = append(toks, token{kind: tokText, val: src, line: line})
			break
		}
		if i > 0 {
			toks = append(toks, token{kind: tokText, val: src[:i], line: line})
			line += strings.Count(src[:i], "\n")
			src = src[i:]
		}

		d := delimiters[src[:2]]
		end := closingDelimiter(src[2:], d.close, d.kind != tokComment)
		if end < 0 {
			return nil, printing.NewTemplateSyntaxError(line, "unclosed "+src[:2])
		}
		inner := src[2 : 2+end]
		tok := token{kind: d.kind, line: line}
		if strings.HasPrefix(inner, "-") {
			tok.trimLeft = true
			inner = inner[1:]
		}
		if strings.HasSuffix(inner, "-") {
			tok.trimRight = true
			inner = inner[:len(inner)-1]
		}
		tok.val = strings.TrimSpace(inner)
		toks = append(toks, tok)

		consumed := 2 + end + len(d.close)
		line += strings.Count(src[:consumed], "\n")
		src = src[consumed:]
	}

	for i, tok := range toks {
		if tok.trimLeft && i > 0 && toks[i-1].kind == tokText {
			toks[i-1].val = strings.TrimRightFunc(toks[i-1].val, unicode.IsSpace)
		}
		if tok.trimRight && i+1 < len(toks) && toks[i+1].kind == tokText {
			toks[i+1].val = strings.TrimLeftFunc(toks[i+1].val, unicode.IsSpace)
		}
	}
	return toks, nil
}

// closingDelimiter finds close in s. Expression blocks skip quoted string
// literals so a literal may contain the closing delimiter.
func closingDelimiter(s, close string, skipQuotes bool) int {
	if !skipQuotes {
		return strings.Index(s, close)
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(s) {
				return -1
			}
			i = j
		case strings.HasPrefix(s[i:], close):
			return i
		}
	}
	return -1
}

func nextDelimiter(src string) int {
	for i := 0; i+1 < len(src); i++ {
		if src[i] != '{' {
			continue
		}
		switch src[i+1] {
		case '{', '%', '#':
			return i
		}
	}
	return -1
}

type exprTokKind int

const (
	etEOF exprTokKind = iota
	etIdent
	etNumber
	etString
	etOp
)

type exprTok struct {
	kind exprTokKind
	val  string
}

var twoCharOps = []string{"==", "!=", "<=", ">="}

// tokenizeExpr splits the inside of a delimiter into expression tokens
func tokenizeExpr(s string, line int) ([]exprTok, error) {
	var toks []exprTok
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '"' || c == '\'':
			j := i + 1
			var sb strings.Builder
			for j < len(s) && s[j] != c {
				if s[j] == '\\' && j+1 < len(s) {
					j++
				}
				sb.WriteByte(s[j])
				j++
			}
			if j >= len(s) {
				return nil, printing.NewTemplateSyntaxError(line, "unterminated string literal")
			}
			toks = append(toks, exprTok{kind: etString, val: sb.String()})
			i = j + 1
		case isDigit(c) || (c == '-' && i+1 < len(s) && isDigit(s[i+1]) && expectsOperand(toks)):
			j := i + 1
			seenDot := false
			for j < len(s) && (isDigit(s[j]) || (s[j] == '.' && !seenDot && j+1 < len(s) && isDigit(s[j+1]))) {
				if s[j] == '.' {
					seenDot = true
				}
				j++
			}
			toks = append(toks, exprTok{kind: etNumber, val: s[i:j]})
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			toks = append(toks, exprTok{kind: etIdent, val: s[i:j]})
			i = j
		default:
			op := ""
			for _, candidate := range twoCharOps {
				if strings.HasPrefix(s[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" && strings.ContainsRune("|().,[]<>", rune(c)) {
				op = string(c)
			}
			if op == "" {
				return nil, printing.NewTemplateSyntaxError(line, "unexpected character "+string(c))
			}
			toks = append(toks, exprTok{kind: etOp, val: op})
			i += len(op)
		}
	}
	return append(toks, exprTok{kind: etEOF}), nil
}

// expectsOperand reports whether a '-' at this point starts a negative literal
func expectsOperand(toks []exprTok) bool {
	if len(toks) == 0 {
		return true
	}
	last := toks[len(toks)-1]
	switch last.kind {
	case etOp:
		return last.val != ")" && last.val != "]"
	case etIdent:
		switch last.val {
		case "and", "or", "not", "in":
			return true
		}
	}
	return false
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
