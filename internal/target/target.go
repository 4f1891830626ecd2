// Package target classifies free-text small-body designations.
//
// A name is matched against three pattern families in fixed priority
// order: cometary, asteroidal, interstellar object. The first family
// matching a prefix of the trimmed name wins; ties between grammars are
// broken by this order, not by longest match.
package target

import (
	"errors"
	"regexp"
	"strings"

	"github.com/smallbodies/catch-api/pkg/models"
)

// ErrEmptyTarget is returned for blank input.
var ErrEmptyTarget = errors.New("invalid target: empty string")

// ErrAmbiguousTarget is returned when no designation grammar matches.
var ErrAmbiguousTarget = errors.New(
	"target names may be ambiguous (e.g., Encke is the name of a comet and an " +
		"asteroid) and are not supported; use the target's designation or " +
		"permanent catalog ID (e.g., 2P or 9134)")

// Designation grammars, developed with some guidance from sbpy. The
// temporary designation form ("2019 DQ123", "1994 N2") must not be
// followed by another capital letter; Go's regexp has no lookahead, so
// that check happens after the match.
const (
	tempDesignation = `(18|19|20)[0-9][0-9] ([A-Z]{1,2}[1-9][0-9]{0,2}|[A-Z][A-Z])`
	cometFragment   = `-[A-Z]{1,2}`
)

var (
	// 123P, 3D, 73P-B; a trailing /name ("1P/Halley") is not part of
	// the match.
	permanentComet = regexp.MustCompile(`^[1-9][0-9]*[PD](` + cometFragment + `)?`)

	// P/2001 YX127, C/2013 US10, C/2001 A2-A; a trailing (name) is not
	// part of the match.
	temporaryComet = regexp.MustCompile(`^[PDCX]/` + tempDesignation)

	fragmentSuffix = regexp.MustCompile(`^` + cometFragment)

	asteroidal = []*regexp.Regexp{
		regexp.MustCompile(`^` + tempDesignation + `$`),        // 2019 DQ123
		regexp.MustCompile(`^\([1-9][0-9]*\)`),                 // (1) Ceres
		regexp.MustCompile(`^[1-9][0-9]*$`),                    // 1234
		regexp.MustCompile(`^A/` + tempDesignation + `$`),      // A/2019 Q1
		regexp.MustCompile(`^A[IJK][0-9]{2}[A-Z][0-9A-Za-z]{2}[0a-z]$`), // AK21E040
		regexp.MustCompile(`^[0-9]{4} (P-L|T-[123])$`),         // 2040 P-L, 3138 T-1
		regexp.MustCompile(`^[IJK][0-9]{2}[A-Z][0-9A-Za-z][0-9][A-Z]$`), // J95X00A
		regexp.MustCompile(`^(PL|T[123])S[0-9]{4}$`),           // PLS2040, T1S3138
	}

	interstellar = []*regexp.Regexp{
		regexp.MustCompile(`^[1-9][0-9]*I`), // 1I/`Oumuamua
		regexp.MustCompile(`^[0-9]{4}I$`),   // 0002I
	}
)

// Classify parses a moving target name into its type and the canonical
// matched substring (enclosing parentheses stripped). It returns
// ErrEmptyTarget for blank input and ErrAmbiguousTarget when no
// designation grammar matches.
func Classify(name string) (models.TargetType, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.TargetUnknown, "", ErrEmptyTarget
	}

	for _, family := range []struct {
		typ   models.TargetType
		match func(string) string
	}{
		{models.TargetComet, matchComet},
		{models.TargetAsteroid, matchAsteroid},
		{models.TargetInterstellarObject, matchInterstellar},
	} {
		if m := family.match(name); m != "" {
			m = strings.TrimSuffix(strings.TrimPrefix(m, "("), ")")
			return family.typ, strings.TrimSpace(m), nil
		}
	}

	return models.TargetUnknown, "", ErrAmbiguousTarget
}

// matchComet matches permanent ("73P", "73P-B") and temporary
// ("C/2013 US10") cometary designations. All comets start with 123P,
// 123D, or P/, C/, D/, X/; checking the permanent form first avoids
// nonsense like 32C/Asdf.
func matchComet(name string) string {
	if m := permanentComet.FindString(name); m != "" {
		return m
	}
	m := temporaryComet.FindString(name)
	if m == "" || followedByCapital(name, m) {
		return ""
	}
	// allow fragments like C/2001 A2-A
	if frag := fragmentSuffix.FindString(name[len(m):]); frag != "" {
		m += frag
	}
	return m
}

func matchAsteroid(name string) string {
	for _, pattern := range asteroidal {
		if m := pattern.FindString(name); m != "" {
			return m
		}
	}
	return ""
}

func matchInterstellar(name string) string {
	for _, pattern := range interstellar {
		if m := pattern.FindString(name); m != "" {
			return m
		}
	}
	return ""
}

// followedByCapital reports whether the character after the matched
// prefix is A-Z, which disqualifies a temporary designation match
// ("P/2001 YXZ" is not a comet).
func followedByCapital(name, match string) bool {
	rest := name[len(match):]
	return rest != "" && rest[0] >= 'A' && rest[0] <= 'Z'
}
