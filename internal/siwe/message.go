// Package siwe builds and parses the line-oriented sign-in message
// (EIP-4361 layout) that wallets sign to prove address ownership.
//
// The signature is computed over the exact byte content of the message, so
// Build and Parse must stay byte-identical inverses of each other: parsing
// a built message and rebuilding it yields the same string.
package siwe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Version is the only message version this package produces or accepts.
const Version = "1"

// Message holds the component fields of a sign-in message.
type Message struct {
	Domain    string
	Address   string
	Statement string
	URI       string
	ChainID   int64
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Build renders the message in its canonical layout:
//
//	<domain> wants you to sign in with your Ethereum account:
//	<address>
//
//	<statement>
//
//	URI: <uri>
//	Version: 1
//	Chain ID: <chain-id>
//	Nonce: <nonce>
//	Issued At: <RFC 3339 UTC>
//	Expiration Time: <RFC 3339 UTC>
func (m Message) Build() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your Ethereum account:\n", m.Domain)
	b.WriteString(m.Address)
	b.WriteString("\n\n")
	b.WriteString(m.Statement)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "URI: %s\n", m.URI)
	fmt.Fprintf(&b, "Version: %s\n", Version)
	fmt.Fprintf(&b, "Chain ID: %d\n", m.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", m.Nonce)
	fmt.Fprintf(&b, "Issued At: %s\n", m.IssuedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Expiration Time: %s", m.ExpiresAt.UTC().Format(time.RFC3339))
	return b.String()
}

const domainSuffix = " wants you to sign in with your Ethereum account:"

// Parse reconstructs a Message from its canonical layout. It is strict:
// field order, line layout, and the version line must match exactly.
func Parse(raw string) (Message, error) {
	lines := strings.Split(raw, "\n")
	if len(lines) != 11 {
		return Message{}, fmt.Errorf("expected 11 lines, got %d", len(lines))
	}

	var m Message

	if !strings.HasSuffix(lines[0], domainSuffix) {
		return Message{}, fmt.Errorf("invalid header line")
	}
	m.Domain = strings.TrimSuffix(lines[0], domainSuffix)
	if m.Domain == "" {
		return Message{}, fmt.Errorf("empty domain")
	}

	m.Address = lines[1]
	if lines[2] != "" || lines[4] != "" {
		return Message{}, fmt.Errorf("missing separator line")
	}
	m.Statement = lines[3]

	var err error
	if m.URI, err = fieldValue(lines[5], "URI"); err != nil {
		return Message{}, err
	}
	version, err := fieldValue(lines[6], "Version")
	if err != nil {
		return Message{}, err
	}
	if version != Version {
		return Message{}, fmt.Errorf("unsupported version %q", version)
	}
	chainID, err := fieldValue(lines[7], "Chain ID")
	if err != nil {
		return Message{}, err
	}
	if m.ChainID, err = strconv.ParseInt(chainID, 10, 64); err != nil {
		return Message{}, fmt.Errorf("invalid chain id %q", chainID)
	}
	if m.Nonce, err = fieldValue(lines[8], "Nonce"); err != nil {
		return Message{}, err
	}
	if m.Nonce == "" {
		return Message{}, fmt.Errorf("empty nonce")
	}
	issuedAt, err := fieldValue(lines[9], "Issued At")
	if err != nil {
		return Message{}, err
	}
	if m.IssuedAt, err = time.Parse(time.RFC3339, issuedAt); err != nil {
		return Message{}, fmt.Errorf("invalid issued-at timestamp %q", issuedAt)
	}
	expiresAt, err := fieldValue(lines[10], "Expiration Time")
	if err != nil {
		return Message{}, err
	}
	if m.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return Message{}, fmt.Errorf("invalid expiration timestamp %q", expiresAt)
	}

	return m, nil
}

func fieldValue(line, name string) (string, error) {
	prefix := name + ": "
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("expected %q field, got %q", name, line)
	}
	return strings.TrimPrefix(line, prefix), nil
}
