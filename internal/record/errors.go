package record

import (
	"fmt"
	"strings"
)

// PartialDecryptionError reports fields of one record that failed to open
// while the others succeeded. Fields lists the failed names in record order.
type PartialDecryptionError struct {
	Fields []string
	Causes map[string]error
}

func (e *PartialDecryptionError) Error() string {
	return fmt.Sprintf("failed to decrypt %d field(s): %s", len(e.Fields), strings.Join(e.Fields, ", "))
}

func (e *PartialDecryptionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, name := range e.Fields {
		errs = append(errs, e.Causes[name])
	}
	return errs
}

// Failed reports whether the named field failed.
func (e *PartialDecryptionError) Failed(name string) bool {
	_, ok := e.Causes[name]
	return ok
}
