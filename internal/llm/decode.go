package llm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Decoded is the structured view of a raw generation response. A response
// that is not a JSON object decodes to a degraded value: every lookup on it
// reports "no data" and Map returns the {"raw": text} wrapper.
type Decoded struct {
	raw  string
	root gjson.Result
	ok   bool
}

// Decode parses raw model output. It never fails; use Degraded to tell a
// fallback wrapper from a genuine (possibly empty) object.
func Decode(raw string) Decoded {
	body := stripFences(raw)
	if !gjson.Valid(body) {
		body = outermostObject(body)
	}
	if body != "" && gjson.Valid(body) {
		root := gjson.Parse(body)
		if root.IsObject() {
			return Decoded{raw: raw, root: root, ok: true}
		}
	}
	return Decoded{raw: raw}
}

// Degraded reports whether the response could not be parsed as a JSON object.
func (d Decoded) Degraded() bool {
	return !d.ok
}

// Raw returns the original response text.
func (d Decoded) Raw() string {
	return d.raw
}

// Get returns the value at a gjson path. Missing keys yield a non-existent result.
func (d Decoded) Get(path string) gjson.Result {
	if !d.ok {
		return gjson.Result{}
	}
	return d.root.Get(path)
}

// Has reports whether path is present in the decoded object.
func (d Decoded) Has(path string) bool {
	return d.Get(path).Exists()
}

// Array returns the elements at path, or nil when the path is missing or not an array.
func (d Decoded) Array(path string) []gjson.Result {
	v := d.Get(path)
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}

// String returns the trimmed string at path, or "" when missing.
func (d Decoded) String(path string) string {
	return strings.TrimSpace(d.Get(path).String())
}

// Map returns the decoded object as a generic map, or {"raw": text} when degraded.
func (d Decoded) Map() map[string]any {
	if !d.ok {
		return map[string]any{"raw": d.raw}
	}
	m, ok := d.root.Value().(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// Strings reads a list of strings from r. A bare string is treated as a
// one-element list; anything else yields nil.
func Strings(r gjson.Result) []string {
	switch {
	case r.IsArray():
		var out []string
		for _, v := range r.Array() {
			if s := strings.TrimSpace(v.String()); s != "" {
				out = append(out, s)
			}
		}
		return out
	case r.Type == gjson.String:
		if s := strings.TrimSpace(r.String()); s != "" {
			return []string{s}
		}
	}
	return nil
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

// outermostObject returns the text between the first '{' and the last '}'.
func outermostObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
