// Package errs defines the error taxonomy shared across the columnar
// storage core: a small set of Kinds that every fallible boundary in the
// write path maps its failures onto, wrapped with github.com/cockroachdb/errors
// so callers can still errors.Is/errors.As through to the kind.
package errs

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Kind is the taxonomy from spec §7. It is not meant to be exhaustive of
// every failure mode, only of the handful of buckets a writer needs to
// decide whether a failure aborts the session.
type Kind int

const (
	// KindInputInvalid covers type conflicts at field registration, illegal
	// transform chains, and flavor/type mismatches on append.
	KindInputInvalid Kind = iota + 1
	// KindResourceExhausted covers allocation failures and codec buffer
	// overflows.
	KindResourceExhausted
	// KindIntegrity covers MD5 mismatches on decode, non-monotonic tensor
	// offsets, and a nullity bitmap missing where one is required.
	KindIntegrity
	// KindOutOfRange covers row indices beyond n_records and internal codec
	// range errors.
	KindOutOfRange
	// KindNotEncoded is non-fatal: dictionary encoding was attempted and
	// declined because the cardinality ratio threshold wasn't met. Callers
	// should treat this as a signal, not a failure.
	KindNotEncoded
)

func (k Kind) String() string {
	switch k {
	case KindInputInvalid:
		return "input_invalid"
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindIntegrity:
		return "integrity"
	case KindOutOfRange:
		return "out_of_range"
	case KindNotEncoded:
		return "not_encoded"
	default:
		return "unknown"
	}
}

type kindMarker struct{ kind Kind }

func (m kindMarker) Error() string { return m.kind.String() }

// New returns an error of the given kind, annotated with a formatted
// message. The kind can later be tested with Is.
func New(kind Kind, format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), kindMarker{kind})
}

// Wrap annotates err with the given kind and message, preserving the
// original error in the chain.
func Wrap(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), kindMarker{kind})
}

// Is reports whether err is marked with kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kindMarker{kind})
}

// Safe wraps a value so it survives cockroachdb/errors' PII redaction,
// for identifiers (field names, codec ids) that are safe to log verbatim.
func Safe(v interface{}) redact.SafeValue {
	return errors.Safe(v)
}
