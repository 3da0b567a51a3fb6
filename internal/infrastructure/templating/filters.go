package templating

import (
	"bytes"
	"encoding/base64"
	"html"
	"slices"
	"strings"
	"unicode"

	"github.com/lestrrat-go/strftime"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FilterFunc transforms a value. Filters never fail: input they cannot
// interpret is passed through as text.
type FilterFunc func(in Value, args []Value) Value

type filterSpec struct {
	fn      FilterFunc
	maxArgs int
}

// Defaults used when a filter argument is omitted
const (
	DefaultCurrency     = "USD"
	DefaultDatePattern  = "%B %d, %Y"
	defaultTruncateSize = 255
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	sanitize = bluemonday.UGCPolicy()
)

func builtinFilters() map[string]filterSpec {
	return map[string]filterSpec{
		"b64encode":       {fn: b64encode, maxArgs: 0},
		"format_currency": {fn: formatCurrency, maxArgs: 1},
		"format_date":     {fn: formatDate, maxArgs: 1},
		"safe":            {fn: markSafe, maxArgs: 0},
		"escape":          {fn: escape, maxArgs: 0},
		"e":               {fn: escape, maxArgs: 0},
		"upper":           {fn: textFilter(strings.ToUpper), maxArgs: 0},
		"lower":           {fn: textFilter(strings.ToLower), maxArgs: 0},
		"title":           {fn: textFilter(titleCase), maxArgs: 0},
		"trim":            {fn: textFilter(strings.TrimSpace), maxArgs: 0},
		"default":         {fn: defaultValue, maxArgs: 1},
		"length":          {fn: length, maxArgs: 0},
		"join":            {fn: join, maxArgs: 1},
		"truncate":        {fn: truncate, maxArgs: 2},
		"round":           {fn: round, maxArgs: 1},
		"markdown":        {fn: renderMarkdown, maxArgs: 0},
	}
}

// FilterNames lists the registered filters
func FilterNames() []string {
	names := make([]string, 0, len(builtinFilters()))
	for name := range builtinFilters() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func arg(args []Value, i int, fallback string) string {
	if i < len(args) && !args[i].IsNone() {
		return args[i].String()
	}
	return fallback
}

func b64encode(in Value, _ []Value) Value {
	return String(base64.StdEncoding.EncodeToString(in.RawBytes()))
}

// formatCurrency renders "<symbol><amount>" with thousands separators and two
// decimals. Unknown codes are used verbatim as the prefix.
func formatCurrency(in Value, args []Value) Value {
	d, ok := in.Decimal()
	if !ok || in.Kind() == KindBool {
		return String(in.String())
	}
	code := strings.ToUpper(arg(args, 0, DefaultCurrency))
	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code
	}
	return String(symbol + groupThousands(d.StringFixed(2)))
}

func groupThousands(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	out := sign + b.String()
	if frac != "" {
		out += "." + frac
	}
	return out
}

func formatDate(in Value, args []Value) Value {
	t, ok := in.AsTime()
	if !ok {
		return String(in.String())
	}
	out, err := strftime.Format(arg(args, 0, DefaultDatePattern), t)
	if err != nil {
		return String(in.String())
	}
	return String(out)
}

func markSafe(in Value, _ []Value) Value {
	return SafeString(in.String())
}

func escape(in Value, _ []Value) Value {
	if in.IsSafe() {
		return in
	}
	return SafeString(html.EscapeString(in.String()))
}

func textFilter(fn func(string) string) FilterFunc {
	return func(in Value, _ []Value) Value {
		return String(fn(in.String()))
	}
}

// A Caser carries state, so each call builds its own.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func defaultValue(in Value, args []Value) Value {
	if !in.IsNone() {
		return in
	}
	if len(args) > 0 {
		return args[0]
	}
	return String("")
}

func length(in Value, _ []Value) Value {
	return Int(int64(in.Len()))
}

func join(in Value, args []Value) Value {
	if in.Kind() != KindList {
		return String(in.String())
	}
	sep := arg(args, 0, "")
	items := in.Items()
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return String(strings.Join(parts, sep))
}

// truncate cuts to n runes on a word boundary where possible and appends end
func truncate(in Value, args []Value) Value {
	n := defaultTruncateSize
	if len(args) > 0 {
		if d, ok := args[0].Decimal(); ok && d.IsPositive() {
			n = int(d.IntPart())
		}
	}
	end := arg(args, 1, "...")

	runes := []rune(in.String())
	if len(runes) <= n {
		return String(string(runes))
	}
	cut := string(runes[:n])
	if !unicode.IsSpace(runes[n]) {
		if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
			cut = cut[:i]
		}
	}
	return String(strings.TrimRightFunc(cut, unicode.IsSpace) + end)
}

func round(in Value, args []Value) Value {
	d, ok := in.Decimal()
	if !ok {
		return String(in.String())
	}
	places := int32(0)
	if len(args) > 0 {
		if p, ok := args[0].Decimal(); ok {
			places = int32(p.IntPart())
		}
	}
	return Number(d.Round(places))
}

// renderMarkdown converts markdown to sanitized HTML
func renderMarkdown(in Value, _ []Value) Value {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(in.String()), &buf); err != nil {
		return String(in.String())
	}
	return SafeString(string(sanitize.SanitizeBytes(buf.Bytes())))
}
