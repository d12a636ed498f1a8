package codec

import (
	"errors"
	"fmt"
)

// QRType is the section kind selected by a payload's first character.
type QRType int

const (
	QRUnknown QRType = iota
	QRObjective
	QRSubjective
)

func (t QRType) String() string {
	switch t {
	case QRObjective:
		return "objective"
	case QRSubjective:
		return "subjective"
	default:
		return "unknown"
	}
}

// Errors that make a single QR undecodable. They are returned wrapped in a
// *DecodeError; match them with errors.Is.
var (
	ErrSchemaVersion  = errors.New("schema version mismatch")
	ErrUnknownSection = errors.New("unknown section marker")
	ErrUnknownCode    = errors.New("unknown field code")
	ErrEnumCode       = errors.New("enum code not in registry")
	ErrFieldSet       = errors.New("field set does not match schema")
	ErrOrdinalRange   = errors.New("super-compressed ordinal out of range")
	ErrTimelineLength = errors.New("timeline length check failed")
	ErrMalformedToken = errors.New("malformed token")
)

// DecodeError reports why one QR could not be decoded.
type DecodeError struct {
	QRType QRType
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s qr: %v", e.QRType, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(t QRType, sentinel error, format string, args ...any) error {
	return &DecodeError{QRType: t, Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}

// EncodeError reports a record that cannot be written in the wire format.
type EncodeError struct {
	QRType QRType
	Field  string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("encode %s qr: %v", e.QRType, e.Err)
	}
	return fmt.Sprintf("encode %s qr field %s: %v", e.QRType, e.Field, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
