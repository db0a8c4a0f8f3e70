package record

import (
	"errors"
	"fmt"
	"sort"

	"github.com/illarion/recvault/internal/crypto"
)

var (
	ErrEmptyFieldName     = errors.New("empty field name")
	ErrDuplicateFieldName = errors.New("duplicate field name")
)

// Field is one named plaintext value.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is an ordered mapping of field name to plaintext value.
type Record []Field

// FromMap builds a record from m with fields sorted by name.
func FromMap(m map[string]string) Record {
	rec := make(Record, 0, len(m))
	for name, value := range m {
		rec = append(rec, Field{Name: name, Value: value})
	}
	sort.Slice(rec, func(i, j int) bool { return rec[i].Name < rec[j].Name })
	return rec
}

// Get returns the value of the named field.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Set replaces the named field or appends it.
func (r *Record) Set(name, value string) {
	for i := range *r {
		if (*r)[i].Name == name {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Name: name, Value: value})
}

// Names returns field names in record order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Map returns the record as an unordered map.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r))
	for _, f := range r {
		m[f.Name] = f.Value
	}
	return m
}

// Validate checks that field names are non-empty and unique.
func (r Record) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, f := range r {
		if f.Name == "" {
			return ErrEmptyFieldName
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFieldName, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// SealedField is one field name bound to its envelope.
type SealedField struct {
	Name     string          `json:"name"`
	Envelope crypto.Envelope `json:"envelope"`
}

// SealedRecord is a record whose values are envelopes. Every envelope
// produced by one Seal call shares Salt.
type SealedRecord struct {
	Version int
	Salt    []byte
	Fields  []SealedField
}

// Names returns field names in record order.
func (s *SealedRecord) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// MinVersion returns the oldest envelope version in the record.
func (s *SealedRecord) MinVersion() int {
	if len(s.Fields) == 0 {
		return s.Version
	}
	oldest := s.Fields[0].Envelope.Version
	for _, f := range s.Fields[1:] {
		if f.Envelope.Version < oldest {
			oldest = f.Envelope.Version
		}
	}
	return oldest
}
