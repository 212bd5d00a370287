package domain

import (
	"fmt"
	"strings"
	"unicode"
)

type NameMatchResult string

const (
	NameMatch      NameMatchResult = "Match"
	NameCloseMatch NameMatchResult = "CloseMatch"
	NameNoMatch    NameMatchResult = "NoMatch"
	UnableToCheck  NameMatchResult = "UnableToCheck"
)

// CloseMatchThreshold is the minimum Jaro-Winkler similarity treated as a
// close match. 0.80 keeps one-character variants ("Tareq"/"Tariq") above the
// line while unrelated names fall below it.
const CloseMatchThreshold = 0.80

// NormalizeName canonicalizes a display name for comparison: trimmed,
// case-folded, inner whitespace collapsed to single spaces.
func NormalizeName(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	return strings.Join(fields, " ")
}

// ClassifyName compares the submitted name against the registered account
// name. An exact normalized match yields Match with no matched name echoed;
// similarity at or above the threshold yields CloseMatch with the registered
// name so the caller can correct; anything else is NoMatch.
func ClassifyName(submitted, registered string) (NameMatchResult, string) {
	s := NormalizeName(submitted)
	r := NormalizeName(registered)
	if s == r {
		return NameMatch, ""
	}
	if JaroWinkler(s, r) >= CloseMatchThreshold {
		return NameCloseMatch, registered
	}
	return NameNoMatch, ""
}

// JaroWinkler computes the Jaro-Winkler similarity of two strings in [0,1].
func JaroWinkler(a, b string) float64 {
	jaro := jaroSimilarity(a, b)
	if jaro == 0 {
		return 0
	}
	prefix := 0
	for i := 0; i < len(a) && i < len(b) && i < 4; i++ {
		if a[i] != b[i] {
			break
		}
		prefix++
	}
	return jaro + float64(prefix)*0.1*(1-jaro)
}

func jaroSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}

	window := la
	if lb > window {
		window = lb
	}
	window = window/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, la)
	matchedB := make([]bool, lb)
	matches := 0
	for i := 0; i < la; i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > lb {
			hi = lb
		}
		for j := lo; j < hi; j++ {
			if matchedB[j] || a[i] != b[j] {
				continue
			}
			matchedA[i] = true
			matchedB[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := 0; i < la; i++ {
		if !matchedA[i] {
			continue
		}
		for !matchedB[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	return (m/float64(la) + m/float64(lb) + (m-float64(transpositions)/2)/m) / 3
}

// ValidateAccountIdentifier rejects malformed identifiers before any registry
// lookup. IBAN-scheme identifiers must pass shape and mod-97 checks; other
// schemes only need a plausible alphanumeric identifier.
func ValidateAccountIdentifier(identifier, schemeName string) error {
	id := strings.ToUpper(strings.TrimSpace(identifier))
	if id == "" {
		return fmt.Errorf("%w: account identifier is required", ErrRequestValidation)
	}
	if strings.EqualFold(strings.TrimSpace(schemeName), "IBAN") {
		return validateIBAN(id)
	}
	if len(id) < 6 || len(id) > 34 {
		return fmt.Errorf("%w: account identifier length out of range", ErrRequestValidation)
	}
	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("%w: account identifier contains invalid characters", ErrRequestValidation)
		}
	}
	return nil
}

func validateIBAN(iban string) error {
	if len(iban) < 15 || len(iban) > 34 {
		return fmt.Errorf("%w: iban length out of range", ErrRequestValidation)
	}
	for _, r := range iban {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("%w: iban contains invalid characters", ErrRequestValidation)
		}
	}
	if !unicode.IsUpper(rune(iban[0])) || !unicode.IsUpper(rune(iban[1])) {
		return fmt.Errorf("%w: iban must start with a country code", ErrRequestValidation)
	}

	// Mod-97 over the rearranged form: digits stay, letters map A=10..Z=35.
	rearranged := iban[4:] + iban[:4]
	remainder := 0
	for _, r := range rearranged {
		var chunk int
		if unicode.IsDigit(r) {
			chunk = int(r - '0')
			remainder = (remainder*10 + chunk) % 97
			continue
		}
		chunk = int(r-'A') + 10
		remainder = (remainder*100 + chunk) % 97
	}
	if remainder != 1 {
		return fmt.Errorf("%w: iban checksum invalid", ErrRequestValidation)
	}
	return nil
}
