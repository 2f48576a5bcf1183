package memory

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// newExecutionID returns a 128-bit opaque identifier, hex-encoded. It
// carries no structure callers may rely on — ordering comes from
// timestamp_ms and the id is only ever used as an opaque tie-break.
func newExecutionID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("memory: generate execution id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
