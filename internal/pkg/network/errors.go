package network

import (
	"fmt"
	"strings"
)

// ConflictingArgumentsError reports two mutually exclusive arguments supplied
// together. Equal values do not excuse the conflict.
type ConflictingArgumentsError struct {
	A string
	B string
}

func (e *ConflictingArgumentsError) Error() string {
	return fmt.Sprintf("conflicting arguments: %s and %s are mutually exclusive", e.A, e.B)
}

// MissingArgumentError reports that none of a set of alternative arguments
// was supplied.
type MissingArgumentError struct {
	Args []string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing argument: supply one of %s", strings.Join(e.Args, ", "))
}

// TypeMismatchError reports a value of the wrong dynamic type, naming the
// argument it arrived through and the object that rejected it.
type TypeMismatchError struct {
	Side  string
	Owner string
	Want  string
	Value interface{}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s of %s must be %s, got %T", e.Side, e.Owner, e.Want, e.Value)
}
