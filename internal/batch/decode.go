package batch

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceOpen = regexp.MustCompile("^```[a-zA-Z]*\n?")

// DecodeResult is the tagged outcome of decoding model output. Decoded is
// false when the content was not valid JSON after fence stripping; Cleaned
// always carries the fence-stripped text for diagnostics.
type DecodeResult struct {
	Cleaned string
	Object  map[string]any
	Decoded bool
}

// Decode strips Markdown code-fence wrapping and best-effort JSON-decodes
// model output. It never fails; callers branch on Decoded.
func Decode(content string) DecodeResult {
	cleaned := stripFences(content)
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil || obj == nil {
		return DecodeResult{Cleaned: cleaned}
	}
	return DecodeResult{Cleaned: cleaned, Object: obj, Decoded: true}
}

func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = fenceOpen.ReplaceAllString(trimmed, "")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
