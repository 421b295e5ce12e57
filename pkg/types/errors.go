package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrUnknownPermitType   = errors.New("unknown permit type")
	ErrInvalidStatus       = errors.New("invalid application status")
	ErrSubmissionFailed    = errors.New("submission failed")
	ErrTODANotApplicable   = errors.New("toda classification applies to franchise applications only")
)

// ValidationError carries field-scoped messages the applicant can fix.
// Step is the first step holding an error, 0 when unknown.
type ValidationError struct {
	Step   int
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return fmt.Sprintf("validation failed for %s", strings.Join(names, ", "))
}
