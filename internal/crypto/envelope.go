package crypto

import "bytes"

// Envelope is one encrypted field. JSON encodes byte fields as standard
// base64: {"version":3,"salt":"..","iv":"..","ciphertext":".."}.
type Envelope struct {
	Version    int    `json:"version"`
	Salt       []byte `json:"salt,omitempty"`
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"` // includes the GCM tag
}

// Clone returns a deep copy of the envelope.
func (e Envelope) Clone() Envelope {
	return Envelope{
		Version:    e.Version,
		Salt:       append([]byte(nil), e.Salt...),
		IV:         append([]byte(nil), e.IV...),
		Ciphertext: append([]byte(nil), e.Ciphertext...),
	}
}

// Equal reports whether two envelopes are byte-identical.
func (e Envelope) Equal(o Envelope) bool {
	return e.Version == o.Version &&
		bytes.Equal(e.Salt, o.Salt) &&
		bytes.Equal(e.IV, o.IV) &&
		bytes.Equal(e.Ciphertext, o.Ciphertext)
}
