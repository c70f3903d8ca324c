package repair

import "strings"

// Bundle section markers. Each marker is followed by one JSON object.
const (
	MarkerTraining  = "TRAINING_JSON"
	MarkerNutrition = "NUTRITION_JSON"
	MarkerSleep     = "SLEEP_JSON"
)

// SectionMarkers lists the bundle markers in their canonical order.
var SectionMarkers = []string{MarkerTraining, MarkerNutrition, MarkerSleep}

// ExtractSections locates each bundle marker and the JSON object that follows
// it. Objects are delimited by brace-balance scanning that skips braces inside
// string literals, so prose, fences or other markers between sections do not
// confuse it and markers quoted inside an object are ignored. A section whose
// object is cut off runs to the end of the text; repair closes it later.
func ExtractSections(raw string) map[string]string {
	out := make(map[string]string, len(SectionMarkers))
	for i := 0; i < len(raw); {
		if raw[i] == '{' {
			// An unclosed brace is prose, not an object; markers after it
			// must stay visible.
			if end, closed := matchObject(raw, i); closed {
				i = end
			} else {
				i++
			}
			continue
		}
		marker := markerAt(raw, i)
		if marker == "" {
			i++
			continue
		}
		i += len(marker)
		start := strings.IndexByte(raw[i:], '{')
		if start < 0 {
			continue
		}
		start += i
		if markerBetween(raw, i, start) {
			continue
		}
		end, _ := matchObject(raw, start)
		if _, seen := out[marker]; !seen {
			out[marker] = raw[start:end]
		}
		i = end
	}
	return out
}

func markerAt(s string, i int) string {
	for _, m := range SectionMarkers {
		if strings.HasPrefix(s[i:], m) {
			return m
		}
	}
	return ""
}

func markerBetween(s string, from, to int) bool {
	for _, m := range SectionMarkers {
		if strings.Contains(s[from:to], m) {
			return true
		}
	}
	return false
}

// matchObject returns the index just past the brace that closes the object
// opened at start, or len(s) and false when the object is never closed.
func matchObject(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return len(s), false
}
