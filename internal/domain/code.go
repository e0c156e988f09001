package domain

import "strings"

// CanonicalCode is a department code in its single comparable form: numeric
// codes zero-padded to width 2, letters uppercased. All joins key on
// CanonicalCode, never on raw source strings.
type CanonicalCode string

func (c CanonicalCode) String() string { return string(c) }

// CodeClass is the scope class of a department code.
type CodeClass string

const (
	// ClassMainland covers "01".."95" plus the Corsican "2A"/"2B".
	ClassMainland CodeClass = "mainland"
	// ClassOverseas covers three-digit DOM-TOM-COM codes such as "971".
	ClassOverseas CodeClass = "overseas"
	// ClassAbroad covers "Z"-prefixed codes for citizens registered abroad.
	ClassAbroad CodeClass = "abroad"
)

// Normalize canonicalizes a raw department code. Single-digit numerics are
// left-padded ("1" -> "01"), Corsican and abroad codes are uppercased, and
// overseas codes pass through. Normalize is idempotent: feeding its output
// back in returns the same code.
//
// A code that fits no class comes back as a *MalformedCodeError. Normalize
// never coerces a broken code into a valid-looking one.
func Normalize(raw string) (CanonicalCode, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", &MalformedCodeError{Raw: raw, Reason: "empty"}
	}

	switch {
	case isDigits(s):
		switch len(s) {
		case 1:
			return CanonicalCode("0" + s), nil
		case 2:
			return CanonicalCode(s), nil
		case 3:
			return CanonicalCode(s), nil
		default:
			return "", &MalformedCodeError{Raw: raw, Reason: "numeric code longer than 3 digits"}
		}

	case s == "2A" || s == "2B":
		return CanonicalCode(s), nil

	case s[0] == 'Z':
		if len(s) >= 2 && len(s) <= 3 && isLetters(s) {
			return CanonicalCode(s), nil
		}
		return "", &MalformedCodeError{Raw: raw, Reason: "abroad code must be 2-3 letters"}

	default:
		return "", &MalformedCodeError{Raw: raw, Reason: "not a recognized INSEE code form"}
	}
}

// Classify returns the scope class of a canonical code. Only call with the
// output of [Normalize]; classification of raw codes is undefined.
func Classify(code CanonicalCode) CodeClass {
	s := string(code)
	switch {
	case len(s) > 0 && s[0] == 'Z':
		return ClassAbroad
	case len(s) == 3:
		return ClassOverseas
	default:
		return ClassMainland
	}
}

// Class is shorthand for [Classify].
func (c CanonicalCode) Class() CodeClass { return Classify(c) }

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
