package conversation

import (
	"math/rand"
	"strings"
)

const sessionIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewSessionID generates an identifier in the session-<8 alphanumeric>
// format handed out when the caller did not supply its own session id.
func NewSessionID() string {
	var b strings.Builder
	b.WriteString("session-")
	for i := 0; i < 8; i++ {
		b.WriteByte(sessionIDAlphabet[rand.Intn(len(sessionIDAlphabet))])
	}
	return b.String()
}
