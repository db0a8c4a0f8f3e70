package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/illarion/recvault/internal/crypto"
)

// persistedRecord is the stored JSON layout. Current records carry version
// and salt at the top level and omit the salt from envelopes; legacy records
// have neither and repeat the salt in every envelope.
type persistedRecord struct {
	Version int           `json:"version,omitempty"`
	Salt    []byte        `json:"salt,omitempty"`
	Fields  []SealedField `json:"fields"`
}

// Marshal encodes a sealed record for storage.
func Marshal(s *SealedRecord) ([]byte, error) {
	p := persistedRecord{
		Version: s.Version,
		Salt:    s.Salt,
		Fields:  make([]SealedField, len(s.Fields)),
	}
	for i, f := range s.Fields {
		env := f.Envelope
		if s.Version >= crypto.VersionRecordSalt && bytes.Equal(env.Salt, s.Salt) {
			env.Salt = nil
		}
		p.Fields[i] = SealedField{Name: f.Name, Envelope: env}
	}
	return json.Marshal(p)
}

// Unmarshal decodes a stored sealed record in either layout.
func Unmarshal(data []byte) (*SealedRecord, error) {
	var p persistedRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode sealed record: %w", err)
	}

	s := &SealedRecord{
		Version: p.Version,
		Salt:    p.Salt,
		Fields:  p.Fields,
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for i := range s.Fields {
		name := s.Fields[i].Name
		if name == "" {
			return nil, ErrEmptyFieldName
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFieldName, name)
		}
		seen[name] = struct{}{}

		if s.Fields[i].Envelope.Salt == nil && s.Salt != nil {
			s.Fields[i].Envelope.Salt = append([]byte(nil), s.Salt...)
		}
	}

	if s.Salt == nil {
		s.Salt = sharedSalt(s.Fields)
	}
	if s.Version == 0 {
		s.Version = s.MinVersion()
	}
	return s, nil
}

// sharedSalt returns the salt common to every envelope, or nil.
func sharedSalt(fields []SealedField) []byte {
	if len(fields) == 0 {
		return nil
	}
	salt := fields[0].Envelope.Salt
	for _, f := range fields[1:] {
		if !bytes.Equal(f.Envelope.Salt, salt) {
			return nil
		}
	}
	return append([]byte(nil), salt...)
}
