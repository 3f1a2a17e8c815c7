package zipkit

import "fmt"

// FormatError reports that a byte stream violates the ZIP or GZIP wire
// format: a bad signature, a truncated record, or an unsupported feature
// detected while parsing.
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("zipkit: %s: %s", e.Op, e.Err.Error())
}

func (e *FormatError) Unwrap() error { return e.Err }

func newFormatError(op string, err error) error {
	return &FormatError{Op: op, Err: err}
}

func newFormatErrorf(op, format string, args ...interface{}) error {
	return &FormatError{Op: op, Err: fmt.Errorf(format, args...)}
}

// InvalidStateError reports caller misuse: writing to a finished archive,
// exceeding a size cap, or similar contract violation. The archive remains
// in the well-defined state described at the point the error was returned.
type InvalidStateError struct {
	Op  string
	Err error
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("zipkit: %s: %s", e.Op, e.Err.Error())
}

func (e *InvalidStateError) Unwrap() error { return e.Err }

func newInvalidStateError(op, msg string) error {
	return &InvalidStateError{Op: op, Err: fmt.Errorf("%s", msg)}
}

// CollectionError reports a failure at the Collection facade: entry not
// found, or operating on a closed collection.
type CollectionError struct {
	Op  string
	Err error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("zipkit: %s: %s", e.Op, e.Err.Error())
}

func (e *CollectionError) Unwrap() error { return e.Err }

func newCollectionError(op, msg string) error {
	return &CollectionError{Op: op, Err: fmt.Errorf("%s", msg)}
}

// simpleError is a trivial string-backed error used for fixed error values.
// gzip.go's are stored as a FormatError's Err, so errors.Is finds them;
// collection.go's only supply the message text of a CollectionError.
type simpleError string

func (e simpleError) Error() string { return string(e) }
