package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CommandHash produces a deterministic, hex-encoded sha256 digest over the
// inputs that together determine what a child process actually runs: the
// raw command text, the working directory, the interpreter, and the final
// argv. Used to correlate a journalled execution record with the exact
// invocation that produced it without storing the full command text twice.
func CommandHash(raw, cwd, shell string, argv []string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	h.Write([]byte{0})
	h.Write([]byte(cwd))
	h.Write([]byte{0})
	h.Write([]byte(shell))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(argv, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}
