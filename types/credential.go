package types

import (
	"fmt"
	"time"
)

// TimestampLayout is the wire format for all credential timestamps,
// millisecond precision, no zone (stored and served as-is).
const TimestampLayout = "2006-01-02T15:04:05.000"

// Timestamp serializes as TimestampLayout instead of RFC 3339.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{t}
}

func ParseTimestamp(s string) (*Timestamp, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return &Timestamp{t}, nil
}

func (t Timestamp) String() string {
	return t.Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(TimestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid timestamp %s", s)
	}
	parsed, err := time.Parse(TimestampLayout, s[1:len(s)-1])
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Credential is a stored credential pair. Primary and Secondary hold base64
// AES ciphertext, SymmetricKey holds the base64 RSA ciphertext of the AES key
// that encrypted them. Only the holder of the private key matching Identity
// can recover any of the three. Identity never travels in the payload; it is
// the out-of-band lookup handle (the caller's base64 public key).
type Credential struct {
	Identity     string     `json:"-"`
	SymmetricKey string     `json:"symmetric_key,omitempty"`
	Primary      string     `json:"primary,omitempty"`
	Secondary    string     `json:"secondary,omitempty"`
	Description  string     `json:"description,omitempty"`
	LastAccess   *Timestamp `json:"last_access,omitempty"`
	CreatedAt    *Timestamp `json:"created_at,omitempty"`
	UpdatedAt    *Timestamp `json:"updated_at,omitempty"`
}
