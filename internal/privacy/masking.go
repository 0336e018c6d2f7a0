package privacy

import (
	"strconv"
	"strings"
)

// MaskChatID masks a Telegram chat id keeping the sign, a "-100" supergroup
// prefix and the last 4 digits.
// Example: -1001234567890 -> "-100******7890"
func MaskChatID(chatID int64) string {
	s := strconv.FormatInt(chatID, 10)

	prefix := ""
	if strings.HasPrefix(s, "-100") && len(s) > 8 {
		prefix, s = "-100", s[4:]
	} else if strings.HasPrefix(s, "-") {
		prefix, s = "-", s[1:]
	}

	return prefix + maskString(s, 4)
}

// MaskUsername keeps the first character of a handle
// Example: "johndoe" -> "j******"
func MaskUsername(username string) string {
	if username == "" {
		return ""
	}
	runes := []rune(username)
	if len(runes) == 1 {
		return "*"
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}

// MaskToken hides the secret half of a bot token, keeping the bot id
// Example: "123456:ABC-DEF" -> "123456:***"
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if idx := strings.Index(token, ":"); idx >= 0 {
		return token[:idx] + ":***"
	}
	return strings.Repeat("*", len(token))
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch k {
		case "chat_id", "destination", "user_id", "sender_id":
			if id, ok := v.(int64); ok {
				masked[k] = MaskChatID(id)
			} else {
				masked[k] = v
			}
		case "username", "handle":
			if s, ok := v.(string); ok {
				masked[k] = MaskUsername(s)
			} else {
				masked[k] = v
			}
		case "token":
			if s, ok := v.(string); ok {
				masked[k] = MaskToken(s)
			} else {
				masked[k] = v
			}
		default:
			masked[k] = v
		}
	}

	return masked
}
