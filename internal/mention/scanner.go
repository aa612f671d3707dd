package mention

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"backoffice-chat/internal/domain/chat"
)

// minNameLength is the smallest normalized name the scanner will match.
// Shorter names produce too many false positives.
const minNameLength = 3

// Candidate is one roster entry the scanner matches against.
type Candidate struct {
	EntityType string
	EntityID   uuid.UUID
	Name       string
}

// Match identifies a mentioned entity.
type Match struct {
	EntityType string
	EntityID   uuid.UUID
}

// Scan returns the entities mentioned in body, at most once each.
// It is pure and deterministic: the result depends only on body and the
// candidate set, never on candidate order.
func Scan(body string, candidates []Candidate) []Match {
	normBody := Normalize(body)
	if normBody == "" {
		return nil
	}
	bodyTokens := strings.Fields(normBody)

	seen := make(map[Match]bool)
	var matches []Match
	for _, c := range candidates {
		name := Normalize(c.Name)
		if utf8.RuneCountInString(name) < minNameLength {
			continue
		}
		if !strings.Contains(normBody, name) && !tokensAppear(bodyTokens, strings.Fields(name)) {
			continue
		}
		m := Match{EntityType: c.EntityType, EntityID: c.EntityID}
		if seen[m] {
			continue
		}
		seen[m] = true
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].EntityType != matches[j].EntityType {
			return matches[i].EntityType == chat.EntityCustomer
		}
		return matches[i].EntityID.String() < matches[j].EntityID.String()
	})
	return matches
}

// tokensAppear reports whether want occurs as a contiguous run inside got.
func tokensAppear(got, want []string) bool {
	if len(want) == 0 || len(want) > len(got) {
		return false
	}
	for i := 0; i+len(want) <= len(got); i++ {
		match := true
		for j := range want {
			if got[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Normalize lowercases, collapses whitespace runs to single spaces and
// strips Arabic diacritics so "أحْمَد" and "احمد" compare equal enough
// for mention purposes.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if arabicDiacritic(r) {
			continue
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(foldAlif(r))
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

// foldAlif collapses the hamza and madda alif variants onto the bare
// alif, matching how names are commonly typed.
func foldAlif(r rune) rune {
	switch r {
	case 'أ', 'إ', 'آ', 'ٱ':
		return 'ا'
	}
	return r
}

// arabicDiacritic reports whether r is an Arabic combining mark or the
// tatweel elongation character.
func arabicDiacritic(r rune) bool {
	switch {
	case r >= 0x0610 && r <= 0x061A:
		return true
	case r >= 0x064B && r <= 0x065F:
		return true
	case r == 0x0640, r == 0x0670:
		return true
	case r >= 0x06D6 && r <= 0x06DC:
		return true
	case r >= 0x06DF && r <= 0x06E8:
		return true
	case r >= 0x06EA && r <= 0x06ED:
		return true
	}
	return false
}
