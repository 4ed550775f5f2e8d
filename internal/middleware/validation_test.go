package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("a reasonable message"))
	assert.Error(t, ValidateMessageContent(""))
	assert.Error(t, ValidateMessageContent("   "))
	assert.Error(t, ValidateMessageContent(strings.Repeat("x", 501)))
	assert.NoError(t, ValidateMessageContent(strings.Repeat("x", 500)))
	assert.Error(t, ValidateMessageContent("bad utf8 \xff"))
}

func TestValidatePartnerCode(t *testing.T) {
	assert.NoError(t, ValidatePartnerCode("ABC234"))
	assert.NoError(t, ValidatePartnerCode("abc234"))
	assert.Error(t, ValidatePartnerCode("ABC23"))
	assert.Error(t, ValidatePartnerCode("ABC2345"))
	assert.Error(t, ValidatePartnerCode("ABC-23"))
	assert.Error(t, ValidatePartnerCode(""))
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle(""))
	assert.NoError(t, ValidateTitle("Pickup schedule"))
	assert.Error(t, ValidateTitle(strings.Repeat("x", 257)))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("0190b2a2-3b6c-7d2e-8f4a-1234567890ab"))
	assert.Error(t, ValidateID("not-a-uuid"))
	assert.Error(t, ValidateID(""))
}
