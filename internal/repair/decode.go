package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DecodeKind classifies why a response could not be decoded.
type DecodeKind string

// Decode failure kinds.
const (
	KindExtraPrefixSuffix DecodeKind = "extra-prefix-suffix"
	KindTrailingComma     DecodeKind = "trailing-comma"
	KindMissingQuote      DecodeKind = "missing-quote"
	KindMissingField      DecodeKind = "missing-field"
	KindUnexpectedToken   DecodeKind = "unexpected-token"
	KindIncomplete        DecodeKind = "incomplete"
	KindOther             DecodeKind = "other"
)

// Hint returns the correction the model should apply for this kind of failure.
func (k DecodeKind) Hint() string {
	switch k {
	case KindExtraPrefixSuffix:
		return "Return only the JSON object, with no text before or after it."
	case KindTrailingComma:
		return "Remove trailing commas before } and ]."
	case KindMissingQuote:
		return "Wrap every key and string value in double quotes and escape inner quotes."
	case KindMissingField:
		return "Include every required field of the schema."
	case KindUnexpectedToken:
		return "Use only valid JSON tokens and the value types the schema requires."
	case KindIncomplete:
		return "The JSON was cut off; return a shorter but complete object."
	default:
		return "Return a single valid JSON object."
	}
}

// DecodeError reports a response that could not be turned into a payload.
type DecodeError struct {
	Kind DecodeKind
	Err  error
	// Text is the repaired text that failed to decode.
	Text string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode (%s): %v", e.Kind, e.Err)
}

// Unwrap exposes both generation.ErrDecode and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	return []error{generation.ErrDecode, e.Err}
}

// Decode repairs raw and decodes it into T. When the repaired text still does
// not parse, one safe truncation is tried before giving up. A non-nil schema
// is checked against the generic form of the document before the typed decode.
func Decode[T any](raw string, schema *jsonschema.Schema) (T, Result, error) {
	var out T
	if strings.TrimSpace(raw) == "" {
		return out, Result{Text: raw}, &DecodeError{Kind: KindIncomplete, Err: errors.New("no content"), Text: raw}
	}

	res := Repair(raw)
	text := res.Text

	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		clipped, ok := SafeTruncate(text)
		if !ok || json.Unmarshal([]byte(clipped), &generic) != nil {
			return out, res, &DecodeError{Kind: classify(raw, text, err), Err: err, Text: text}
		}
		text = clipped
		res = res.with(clipped, LabelSafeTruncation)
	}

	if schema != nil {
		if err := schema.Validate(generic); err != nil {
			return out, res, schemaError(text, err)
		}
	}

	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, res, &DecodeError{Kind: classify(raw, text, err), Err: err, Text: text}
	}
	return out, res, nil
}

var trailingCommaRe = regexp.MustCompile(`,\s*[}\]]`)

func classify(raw, text string, err error) DecodeKind {
	if !strings.Contains(raw, "{") {
		return KindExtraPrefixSuffix
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return KindUnexpectedToken
	}

	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return KindOther
	}

	msg := syntaxErr.Error()
	switch {
	case strings.Contains(msg, "unexpected end of JSON input"):
		return KindIncomplete
	case strings.Contains(msg, "after top-level value"):
		return KindExtraPrefixSuffix
	case trailingCommaRe.MatchString(text):
		return KindTrailingComma
	case strings.Contains(msg, "looking for beginning of object key string"),
		analyze(text).inString:
		return KindMissingQuote
	case syntaxErr.Offset <= 1:
		return KindExtraPrefixSuffix
	}
	return KindUnexpectedToken
}

func schemaError(text string, err error) *DecodeError {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &DecodeError{Kind: KindOther, Err: err, Text: text}
	}

	leaf := deepestCause(verr)
	kind := KindUnexpectedToken
	if strings.HasSuffix(leaf.KeywordLocation, "/required") || strings.HasPrefix(leaf.Message, "missing properties") {
		kind = KindMissingField
	}
	location := leaf.InstanceLocation
	if location == "" {
		location = "/"
	}
	return &DecodeError{
		Kind: kind,
		Err:  fmt.Errorf("at %s: %s", location, leaf.Message),
		Text: text,
	}
}

func deepestCause(e *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(e.Causes) > 0 {
		e = e.Causes[0]
	}
	return e
}
