package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskChatID(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected string
	}{
		{"supergroup", -1001234567890, "-100******7890"},
		{"basic group", -123456789, "-*****6789"},
		{"user", 987654321, "*****4321"},
		{"short", 123, "***"},
		{"short negative", -12, "-**"},
		{"zero", 0, "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskChatID(tt.input))
		})
	}
}

func TestMaskUsername(t *testing.T) {
	assert.Equal(t, "", MaskUsername(""))
	assert.Equal(t, "*", MaskUsername("a"))
	assert.Equal(t, "j******", MaskUsername("johndoe"))
	assert.Equal(t, "ж**", MaskUsername("жук"))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, "123456:***", MaskToken("123456:ABC-DEF1234ghIkl"))
	assert.Equal(t, "******", MaskToken("abcdef"))
}

func TestMaskSensitiveFields(t *testing.T) {
	assert.Nil(t, MaskSensitiveFields(nil))

	masked := MaskSensitiveFields(map[string]interface{}{
		"chat_id":  int64(-1001234567890),
		"username": "johndoe",
		"token":    "1:secret",
		"kind":     "text",
		"user_id":  "not-an-int",
	})

	assert.Equal(t, "-100******7890", masked["chat_id"])
	assert.Equal(t, "j******", masked["username"])
	assert.Equal(t, "1:***", masked["token"])
	assert.Equal(t, "text", masked["kind"])
	assert.Equal(t, "not-an-int", masked["user_id"])
}
