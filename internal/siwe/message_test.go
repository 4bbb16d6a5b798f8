package siwe

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage() Message {
	return Message{
		Domain:    "cleardesk.example",
		Address:   "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		Statement: "Sign in to ClearDesk",
		URI:       "https://cleardesk.example",
		ChainID:   1,
		Nonce:     "a3f8c2d94b1e6a7c5d8f0b2e4a6c8d0f",
		IssuedAt:  time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		ExpiresAt: time.Date(2026, 8, 28, 12, 15, 0, 0, time.UTC),
	}
}

func TestBuildLayout(t *testing.T) {
	raw := sampleMessage().Build()

	expected := strings.Join([]string{
		"cleardesk.example wants you to sign in with your Ethereum account:",
		"0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		"",
		"Sign in to ClearDesk",
		"",
		"URI: https://cleardesk.example",
		"Version: 1",
		"Chain ID: 1",
		"Nonce: a3f8c2d94b1e6a7c5d8f0b2e4a6c8d0f",
		"Issued At: 2026-08-28T12:00:00Z",
		"Expiration Time: 2026-08-28T12:15:00Z",
	}, "\n")

	assert.Equal(t, expected, raw)
}

func TestRoundTripIsByteIdentical(t *testing.T) {
	msg := sampleMessage()
	raw := msg.Build()

	parsed, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, msg, parsed)
	assert.Equal(t, raw, parsed.Build())
}

func TestParseFields(t *testing.T) {
	parsed, err := Parse(sampleMessage().Build())
	require.NoError(t, err)

	assert.Equal(t, "cleardesk.example", parsed.Domain)
	assert.Equal(t, "0x8ba1f109551bD432803012645Ac136ddd64DBA72", parsed.Address)
	assert.Equal(t, "Sign in to ClearDesk", parsed.Statement)
	assert.Equal(t, "https://cleardesk.example", parsed.URI)
	assert.Equal(t, int64(1), parsed.ChainID)
	assert.Equal(t, "a3f8c2d94b1e6a7c5d8f0b2e4a6c8d0f", parsed.Nonce)
	assert.Equal(t, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC), parsed.IssuedAt)
	assert.Equal(t, time.Date(2026, 8, 28, 12, 15, 0, 0, time.UTC), parsed.ExpiresAt)
}

func TestParseRejectsMalformedMessages(t *testing.T) {
	valid := sampleMessage().Build()
	lines := strings.Split(valid, "\n")

	mutate := func(i int, s string) string {
		out := append([]string(nil), lines...)
		out[i] = s
		return strings.Join(out, "\n")
	}

	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"truncated", strings.Join(lines[:7], "\n")},
		{"extra line", valid + "\nRequest ID: 1"},
		{"bad header", mutate(0, "sign in please:")},
		{"empty domain", mutate(0, domainSuffix[1:])},
		{"missing separator", mutate(2, "x")},
		{"wrong field order", mutate(5, "Nonce: abc")},
		{"unsupported version", mutate(6, "Version: 2")},
		{"non-numeric chain id", mutate(7, "Chain ID: mainnet")},
		{"empty nonce", mutate(8, "Nonce: ")},
		{"bad issued at", mutate(9, "Issued At: yesterday")},
		{"bad expiration", mutate(10, "Expiration Time: 2026-08-28")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw)
			assert.Error(t, err)
		})
	}
}
