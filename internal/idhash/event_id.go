package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEventID computes a deterministic activity event id using SHA256.
// Formula: SHA256(event_type|account_address|timestamp)
// Returns hex-encoded hash (64 characters).
func ComputeEventID(
	eventType string,
	accountAddress string,
	timestamp int64,
) string {
	data := fmt.Sprintf("%s|%s|%d",
		eventType,
		accountAddress,
		timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
