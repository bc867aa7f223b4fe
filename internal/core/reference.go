package core

import (
	"fmt"
	"strconv"
)

const (
	// ReferenceLength is two series letters followed by seven digits.
	ReferenceLength = 9

	MaxReferenceNumber = 9999999
)

// FormatReference builds the canonical uppercase reference for a series and number.
func FormatReference(series string, number int64) string {
	return fmt.Sprintf("%s%07d", NormalizeSeries(series), number)
}

// ParseReference splits a reference into its uppercase series and its number.
// Only the shape is checked here; range and series ownership belong to the checkbook.
func ParseReference(ref string) (series string, number int64, err error) {
	if len(ref) != ReferenceLength {
		return "", 0, &ReferenceError{Kind: ErrFormat, Reference: ref, Reason: "must be exactly 9 characters (2 letters + 7 digits)"}
	}
	if !isASCIILetter(ref[0]) || !isASCIILetter(ref[1]) {
		return "", 0, &ReferenceError{Kind: ErrFormat, Reference: ref, Reason: "first 2 characters must be letters"}
	}
	for i := 2; i < ReferenceLength; i++ {
		if ref[i] < '0' || ref[i] > '9' {
			return "", 0, &ReferenceError{Kind: ErrFormat, Reference: ref, Reason: "last 7 characters must be digits"}
		}
	}
	number, err = strconv.ParseInt(ref[2:], 10, 64)
	if err != nil {
		return "", 0, &ReferenceError{Kind: ErrFormat, Reference: ref, Reason: err.Error()}
	}
	return NormalizeSeries(ref[:2]), number, nil
}

// CanonicalReference returns ref with its series uppercased.
func CanonicalReference(ref string) (string, error) {
	series, number, err := ParseReference(ref)
	if err != nil {
		return "", err
	}
	return FormatReference(series, number), nil
}
