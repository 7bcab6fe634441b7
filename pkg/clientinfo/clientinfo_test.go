package clientinfo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	assert.Equal(t, "unknown", Describe("  "))

	desktop := Describe("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.110 Safari/537.36")
	assert.True(t, strings.HasPrefix(desktop, "Chrome 120"), desktop)
	assert.Contains(t, desktop, "Windows")

	phone := Describe("Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1")
	assert.True(t, strings.HasSuffix(phone, "[mobile]"), phone)

	bot := Describe("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	assert.True(t, strings.HasSuffix(bot, "[bot]"), bot)
}
