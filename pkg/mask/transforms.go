// pkg/mask/transforms.go
package mask

import (
	"regexp"
	"strings"
)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// streetTypes are the tokens that end the street portion of an address
var streetTypes = map[string]struct{}{
	"st": {}, "street": {}, "ave": {}, "avenue": {}, "rd": {}, "road": {},
	"blvd": {}, "boulevard": {}, "ln": {}, "lane": {}, "dr": {}, "drive": {},
	"ct": {}, "court": {}, "way": {}, "pl": {}, "place": {}, "ter": {}, "terrace": {},
}

// MaskedAddress replaces address values whose street portion cannot be
// distinguished from the rest. Downstream verification treats it as a
// fully masked cell.
const MaskedAddress = "[MASKED ADDRESS]"

// maskName keeps the first character of each token and stars the rest,
// so "Patricia Smith" becomes "P******* S****"
func maskName(s string) string {
	tokens := strings.Fields(s)
	for i, token := range tokens {
		runes := []rune(token)
		tokens[i] = string(runes[0]) + strings.Repeat("*", len(runes)-1)
	}
	return strings.Join(tokens, " ")
}

// maskEmail keeps the first character of the local part and the full
// domain, so "fake@email.com" becomes "f***@email.com". Values without
// an @ pass through untouched.
func maskEmail(s string) string {
	at := strings.LastIndex(s, "@")
	if at < 1 {
		return s
	}
	local := []rune(s[:at])
	return string(local[0]) + strings.Repeat("*", len(local)-1) + s[at:]
}

// maskPhone stars every digit except the last four, leaving separator
// positions intact: "555-123-4567" becomes "***-***-4567". Values with
// four or fewer digits have every digit starred.
func maskPhone(s string) string {
	total := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			total++
		}
	}

	keep := 4
	if total <= keep {
		keep = 0
	}

	runes := []rune(s)
	seen := 0
	for i, r := range runes {
		if r < '0' || r > '9' {
			continue
		}
		seen++
		if seen <= total-keep {
			runes[i] = '*'
		}
	}
	return string(runes)
}

// maskDateOfBirth keeps the year and stars month and day. Anything not
// in canonical YYYY-MM-DD form passes through untouched.
func maskDateOfBirth(s string) string {
	if !isoDatePattern.MatchString(s) {
		return s
	}
	return s[:4] + "-**-**"
}

// maskStreetAddress stars the street portion and keeps the trailing
// city, region and postal tokens. When no street type token is found
// the whole value collapses to the masked-address marker.
func maskStreetAddress(s string) string {
	tokens := strings.Fields(s)
	end := -1
	for i, token := range tokens {
		if _, ok := streetTypes[strings.ToLower(token)]; ok {
			end = i
			break
		}
	}
	if end < 0 {
		return MaskedAddress
	}

	for i := 0; i <= end; i++ {
		tokens[i] = strings.Repeat("*", len([]rune(tokens[i])))
	}
	return strings.Join(tokens, " ")
}
