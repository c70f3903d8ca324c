package repair

import (
	"encoding/json"
	"strings"
)

// maxPasses bounds how many times the heuristic sequence is rerun. Later
// heuristics can expose defects for earlier ones (a trimmed quote leaves a
// dangling key), so the sequence runs until nothing changes.
const maxPasses = 4

// Result is the output of one repair pass: the fixed text and the ordered
// set of fix labels that changed it.
type Result struct {
	Text  string
	fixes []string
}

// Fixes returns the labels of the heuristics that changed the text, in the
// order they first fired.
func (r Result) Fixes() []string {
	return append([]string(nil), r.fixes...)
}

// Changed reports whether any heuristic modified the text.
func (r Result) Changed() bool {
	return len(r.fixes) > 0
}

// with returns a copy of r carrying text and the extra label.
func (r Result) with(text, label string) Result {
	out := Result{Text: text, fixes: r.Fixes()}
	out.fixes = addLabel(out.fixes, label)
	return out
}

func addLabel(labels []string, label string) []string {
	for _, l := range labels {
		if l == label {
			return labels
		}
	}
	return append(labels, label)
}

// Repair applies the heuristic sequence to raw. It never fails: text that
// matches no known defect is returned unchanged, and syntactically valid JSON
// is always a no-op. Repair is idempotent.
func Repair(raw string) Result {
	if json.Valid([]byte(raw)) {
		return Result{Text: raw}
	}

	cur := strings.TrimSpace(raw)
	var fixes []string
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for _, h := range heuristics {
			if json.Valid([]byte(cur)) {
				break
			}
			next := h.apply(cur)
			if next != cur {
				cur = next
				fixes = addLabel(fixes, h.label)
				changed = true
			}
		}
		if !changed || json.Valid([]byte(cur)) {
			break
		}
	}

	if len(fixes) == 0 {
		return Result{Text: raw}
	}
	if json.Valid([]byte(cur)) {
		if next := PatchDomainTemplate(cur); next != cur {
			cur = next
			fixes = addLabel(fixes, LabelPatchTemplate)
		}
	}
	return Result{Text: cur, fixes: fixes}
}

// SafeTruncate clips text at the latest closing bracket whose prefix can be
// closed into valid JSON. It reports false when no such prefix exists.
func SafeTruncate(text string) (string, bool) {
	closers := closersOutsideStrings(text)
	tries := 0
	for k := len(closers) - 1; k >= 0 && tries < maxTruncationTries; k-- {
		tries++
		candidate := text[:closers[k]+1]
		candidate = BalanceBrackets(RemoveTrailingCommas(FixMisnestedClosers(candidate)))
		if candidate != text && json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

const maxTruncationTries = 64
