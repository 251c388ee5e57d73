package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a value while keeping its last four characters.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// Redact returns a copy of input where string values under a sensitive key
// are masked. Keys match case-insensitively, nested maps included.
func Redact(input map[string]any, sensitive ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}
	keys := make(map[string]struct{}, len(sensitive))
	for _, key := range sensitive {
		keys[strings.ToLower(strings.TrimSpace(key))] = struct{}{}
	}
	return redact(input, keys)
}

func redact(input map[string]any, keys map[string]struct{}) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		_, hide := keys[strings.ToLower(trimmedKey)]
		switch cast := value.(type) {
		case string:
			if hide {
				out[trimmedKey] = MaskSecret(cast)
			} else {
				out[trimmedKey] = cast
			}
		case map[string]any:
			out[trimmedKey] = redact(cast, keys)
		default:
			out[trimmedKey] = value
		}
	}
	return out
}
