package util

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ShortIdentity hashes an identity handle (a full base64 public key, several
// hundred characters) into a short stable token for log lines.
func ShortIdentity(identity string) string {
	return fmt.Sprintf("%x", xxhash.Sum64String(identity))
}
