package relay

import (
	"encoding/json"
	"strings"
)

// replyKeys are checked in order on JSON object replies (and on the first
// element of JSON array replies). Upstream AI backends disagree on the field
// name, so the chain is fixed and exhaustive.
var replyKeys = []string{"message", "output", "response", "text"}

// NormalizeReply extracts the AI reply text from an arbitrary webhook
// response body. Fallback order: known keys on an object, known keys on the
// first array element (or the element itself if it is a string), the raw
// trimmed body, and finally a canned apology for an empty body.
func NormalizeReply(body []byte) string {
	trimmed := strings.TrimSpace(string(body))

	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		switch v := decoded.(type) {
		case map[string]any:
			if text, ok := pickReply(v); ok {
				return text
			}
		case []any:
			if len(v) > 0 {
				switch first := v[0].(type) {
				case map[string]any:
					if text, ok := pickReply(first); ok {
						return text
					}
				case string:
					return first
				}
			}
		}
	}

	if trimmed != "" {
		return trimmed
	}
	return emptyReplyFallback
}

func pickReply(obj map[string]any) (string, bool) {
	for _, key := range replyKeys {
		if text, ok := obj[key].(string); ok {
			return text, true
		}
	}
	return "", false
}
