package repair

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Fix labels, one per heuristic, in application order.
const (
	LabelStripFences      = "strip_markdown_fences"
	LabelSliceObject      = "slice_outer_object"
	LabelTrimAfterRoot    = "trim_after_root"
	LabelSingleQuotes     = "normalize_single_quotes"
	LabelQuoteArtifacts   = "unescape_quote_artifacts"
	LabelBareKeys         = "quote_bare_keys"
	LabelMissingCommas    = "insert_missing_commas"
	LabelMisnestedClosers = "fix_misnested_closers"
	LabelTrailingCommas   = "remove_trailing_commas"
	LabelDanglingPair     = "trim_dangling_pair"
	LabelUnmatchedQuote   = "trim_unmatched_quote"
	LabelBalanceBrackets  = "balance_brackets"
	LabelPatchTemplate    = "patch_domain_template"
	LabelSafeTruncation   = "safe_truncation"
	LabelNormalizeMacros  = "normalize_macros"
)

type heuristic struct {
	label string
	apply func(string) string
}

// heuristics is the fixed total order the repairer applies. Surrounding prose
// is removed before any bracket surgery so that braces in prose never reach
// the closer fixes; trailing commas are removed after misnested closers are
// fixed because replacing a closer can expose a new ",}" pair; truncation is
// handled last since every earlier step can shorten the tail.
var heuristics = []heuristic{
	{LabelStripFences, StripMarkdownFences},
	{LabelSliceObject, SliceOuterObject},
	{LabelTrimAfterRoot, TrimAfterRoot},
	{LabelSingleQuotes, NormalizeSingleQuotes},
	{LabelQuoteArtifacts, UnescapeQuoteArtifacts},
	{LabelBareKeys, QuoteBareKeys},
	{LabelMissingCommas, InsertMissingCommas},
	{LabelMisnestedClosers, FixMisnestedClosers},
	{LabelTrailingCommas, RemoveTrailingCommas},
	{LabelDanglingPair, TrimDanglingPair},
	{LabelUnmatchedQuote, TrimUnmatchedQuote},
	{LabelBalanceBrackets, BalanceBrackets},
}

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

// StripMarkdownFences returns the body of the first fenced block. An opening
// fence without a closing one is dropped together with its language tag.
func StripMarkdownFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	i := strings.Index(s, "```")
	rest := s[i+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		rest = strings.TrimLeft(rest, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	return strings.TrimSpace(rest)
}

// SliceOuterObject keeps the text from the first '{' to the last '}'. When
// the text has an opening brace but no closing one after it, everything from
// the brace on is kept.
func SliceOuterObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

// TrimAfterRoot drops content following the close of the root object. A tail
// that starts with a closer or a comma is left alone: it means the root was
// closed early by a stray brace, which FixMisnestedClosers handles.
func TrimAfterRoot(s string) string {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth != 0 {
				continue
			}
			tail := strings.TrimSpace(s[i+1:])
			if tail == "" || strings.IndexByte("}],", tail[0]) >= 0 {
				return s
			}
			return s[:i+1]
		}
	}
	return s
}

// NormalizeSingleQuotes rewrites single-quoted keys and values to double
// quotes. Only quotes in token position (after '{', '[', ',' or ':') open a
// string, so apostrophes in prose inside double-quoted strings are untouched.
func NormalizeSingleQuotes(s string) string {
	if !strings.ContainsRune(s, '\'') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	var prevSig byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				prevSig = '"'
			}
			continue
		}
		if c == '\'' && (prevSig == 0 || strings.IndexByte("{[,:", prevSig) >= 0) {
			if end := singleQuoteEnd(s, i+1); end > 0 {
				b.WriteByte('"')
				writeSingleQuoted(&b, s[i+1:end])
				b.WriteByte('"')
				i = end
				prevSig = '"'
				continue
			}
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
		if !isSpace(c) {
			prevSig = c
		}
	}
	return b.String()
}

// singleQuoteEnd finds the closing single quote of a string starting at from:
// an unescaped quote followed by a structural character or the end of text.
func singleQuoteEnd(s string, from int) int {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '\'':
			n := nextSignificantByte(s, j+1)
			if n == 0 || strings.IndexByte(":,}]", n) >= 0 {
				return j
			}
		}
	}
	return -1
}

func writeSingleQuoted(b *strings.Builder, body string) {
	for k := 0; k < len(body); k++ {
		c := body[k]
		switch {
		case c == '\\' && k+1 < len(body) && body[k+1] == '\'':
			b.WriteByte('\'')
			k++
		case c == '\\' && k+1 < len(body):
			b.WriteByte(c)
			b.WriteByte(body[k+1])
			k++
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
}

var (
	escapedQuoteReplacer = strings.NewReplacer(`\\`, `\`, `\"`, `"`)
	doubledQuoteRe       = regexp.MustCompile(`([{\[,:]\s*)""([^",:{}\[\]\\]+)""`)
)

// UnescapeQuoteArtifacts repairs quote noise: an object whose quotes were all
// backslash-escaped, doubled quotes around keys or values (""key""), and
// unescaped quotes inside a string value (he said "hi" ok).
func UnescapeQuoteArtifacts(s string) string {
	out := s
	if i := strings.IndexByte(out, '{'); i >= 0 {
		if strings.HasPrefix(strings.TrimLeft(out[i+1:], " \t\r\n"), `\"`) {
			out = escapedQuoteReplacer.Replace(out)
		}
	}
	out = doubledQuoteRe.ReplaceAllString(out, `$1"$2"`)
	return escapeInnerQuotes(out)
}

func escapeInnerQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			if isInnerQuote(s, i) {
				b.WriteString(`\"`)
				continue
			}
			inString = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// isInnerQuote reports whether the quote at i sits inside a string value: it
// is followed by a word character and the next quote comes before any
// structural character.
func isInnerQuote(s string, i int) bool {
	n := nextSignificant(s, i+1)
	if n < 0 {
		return false
	}
	if c := s[n]; !(isIdentByte(c) || c >= 0x80) {
		return false
	}
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '"':
			return true
		case ':', '{', '}', '[', ']', ',':
			return false
		}
	}
	return false
}

// QuoteBareKeys wraps unquoted object keys in double quotes. It also repairs
// keys missing only their opening quote (`, type":`).
func QuoteBareKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		b.WriteByte(c)
		if c == '"' {
			inString = true
			continue
		}
		if c != '{' && c != ',' {
			continue
		}
		j := i + 1
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j >= len(s) || !isIdentStart(s[j]) {
			continue
		}
		k := j
		for k < len(s) && isIdentByte(s[k]) {
			k++
		}
		m := k
		for m < len(s) && isSpace(s[m]) {
			m++
		}
		switch {
		case m < len(s) && s[m] == ':':
			b.WriteString(s[i+1 : j])
			b.WriteString(`"` + s[j:k] + `"`)
			i = k - 1
		case m+1 < len(s) && s[m] == '"' && s[m+1] == ':':
			b.WriteString(s[i+1 : j])
			b.WriteString(`"` + s[j:k] + `"`)
			i = m
		}
	}
	return b.String()
}

// InsertMissingCommas adds the comma between a completed value and the start
// of the next one, as in `}{`, `]{` or `"a" "b"`.
func InsertMissingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	inString, escaped, valueEnded := false, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				valueEnded = true
			}
			continue
		}
		switch {
		case c == '"' || c == '{' || c == '[':
			if valueEnded {
				b.WriteByte(',')
			}
			inString = c == '"'
			valueEnded = false
		case c == '}' || c == ']':
			valueEnded = true
		case c == ',' || c == ':':
			valueEnded = false
		case isTokenByte(c):
			valueEnded = true
		}
		b.WriteByte(c)
	}
	return b.String()
}

// FixMisnestedClosers repairs closers that do not match the innermost open
// container. A stray duplicate (the next closer already matches) is dropped,
// as in `}}]` -> `}]`; otherwise the wrong closer is replaced with the right
// one, as in `[1,2}` -> `[1,2]`. Closers with nothing open are left for
// BalanceBrackets.
func FixMisnestedClosers(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, closerFor(c))
		case '}', ']':
			n := len(stack)
			if n == 0 {
				break
			}
			want := stack[n-1]
			if c != want {
				if nextSignificantByte(s, i+1) == want {
					continue
				}
				c = want
			}
			stack = stack[:n-1]
		}
		b.WriteByte(c)
	}
	return b.String()
}

// RemoveTrailingCommas deletes commas directly before '}' or ']', repeating
// until no such comma remains.
func RemoveTrailingCommas(s string) string {
	for {
		next := removeTrailingCommasOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func removeTrailingCommasOnce(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			if n := nextSignificantByte(s, i+1); n == '}' || n == ']' {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// TrimDanglingPair cuts an unterminated text back to its last complete value,
// dropping a trailing key, colon or partial literal such as `,"b":` or
// `,"b":tr`. Text that ends inside a string is left to TrimUnmatchedQuote.
func TrimDanglingPair(s string) string {
	st := analyze(s)
	if st.inString || len(st.stack) == 0 || st.lastSafe >= len(s) {
		return s
	}
	if strings.TrimSpace(s[st.lastSafe:]) == "" {
		return s
	}
	cut := strings.TrimRight(s[:st.lastSafe], " \t\r\n")
	return strings.TrimRight(cut, ",")
}

// TrimUnmatchedQuote cuts a text that ends inside a string back to before the
// opening quote of that string, then drops the pair it belonged to.
func TrimUnmatchedQuote(s string) string {
	st := analyze(s)
	if !st.inString {
		return s
	}
	cut := strings.TrimRight(s[:st.stringStart], " \t\r\n")
	return TrimDanglingPair(cut)
}

// BalanceBrackets removes closers that have no open container and appends
// the closers still owed at the end of the text.
func BalanceBrackets(s string) string {
	st := analyze(s)
	if len(st.stack) == 0 && len(st.stray) == 0 && !st.inString {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(st.stack) + 1)
	prev := 0
	for _, idx := range st.stray {
		b.WriteString(s[prev:idx])
		prev = idx + 1
	}
	b.WriteString(s[prev:])
	if st.inString {
		b.WriteByte('"')
	}
	for k := len(st.stack) - 1; k >= 0; k-- {
		b.WriteByte(st.stack[k].closer)
	}
	return b.String()
}

type domainTemplate struct {
	requires []string
	field    string
}

// domainTemplates are the object shapes whose missing array field can be
// filled with an empty placeholder: a workout, a meal and sleep advice.
var domainTemplates = []domainTemplate{
	{requires: []string{"id", "date"}, field: "sets"},
	{requires: []string{"name", "macros"}, field: "ingredients"},
	{requires: []string{"disclaimer"}, field: "messages"},
}

func (t domainTemplate) matches(obj map[string]any) bool {
	if _, ok := obj[t.field]; ok {
		return false
	}
	for _, key := range t.requires {
		if _, ok := obj[key]; !ok {
			return false
		}
	}
	return true
}

// PatchDomainTemplate injects an empty array for a required field that is
// missing from an object whose other keys match a known payload shape. The
// text must already be valid JSON; anything else is returned unchanged.
func PatchDomainTemplate(s string) string {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return s
	}
	if !patchValue(v) {
		return s
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return s
	}
	return strings.TrimRight(buf.String(), "\n")
}

func patchValue(v any) bool {
	changed := false
	switch t := v.(type) {
	case map[string]any:
		for _, tmpl := range domainTemplates {
			if tmpl.matches(t) {
				t[tmpl.field] = []any{}
				changed = true
			}
		}
		for _, child := range t {
			if patchValue(child) {
				changed = true
			}
		}
	case []any:
		for _, child := range t {
			if patchValue(child) {
				changed = true
			}
		}
	}
	return changed
}
