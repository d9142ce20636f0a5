// Package scopex implements the scope algebra used by the authorization
// server: grammar validation, canonical normalization, subset tests and
// merging of space-delimited OAuth2 scope values.
//
// The canonical form of a scope is its unique tokens sorted
// lexicographically and joined by single spaces. All scope values persisted
// or compared anywhere in the server are expected to be in canonical form.
package scopex

import (
	"errors"
	"sort"
	"strings"
)

// ErrMalformed reports a scope value that fails the grammar check.
var ErrMalformed = errors.New("scopex: malformed scope")

// validTokenByte reports whether b may appear in a scope-token:
//
//	scope-token = 1*( %x21 / %x23-5B / %x5D-7E )
//
// i.e. printable ASCII excluding SP (%x20), DQUOTE (%x22) and backslash (%x5C).
func validTokenByte(b byte) bool {
	switch {
	case b == 0x21:
		return true
	case b >= 0x23 && b <= 0x5B:
		return true
	case b >= 0x5D && b <= 0x7E:
		return true
	}
	return false
}

// Valid reports whether s matches the scope grammar:
//
//	scope = scope-token *( SP scope-token )
func Valid(s string) bool {
	if s == "" {
		return false
	}
	tokens := strings.Split(s, " ")
	for _, tok := range tokens {
		if tok == "" {
			return false
		}
		for i := 0; i < len(tok); i++ {
			if !validTokenByte(tok[i]) {
				return false
			}
		}
	}
	return true
}

// Normalize validates s and returns its canonical form: unique tokens sorted
// lexicographically and space-joined. Commas are accepted as separators for
// backwards compatibility with remoteStorage-style clients. Returns
// ErrMalformed when the grammar check fails.
func Normalize(s string) (string, error) {
	tokens, err := NormalizeList(s)
	if err != nil {
		return "", err
	}
	return strings.Join(tokens, " "), nil
}

// NormalizeList is Normalize returning the canonical token slice.
func NormalizeList(s string) ([]string, error) {
	s = strings.ReplaceAll(s, ",", " ")
	if !Valid(s) {
		return nil, ErrMalformed
	}

	tokens := strings.Split(s, " ")
	sort.Strings(tokens)

	out := tokens[:0]
	var prev string
	for i, tok := range tokens {
		if i > 0 && tok == prev {
			continue
		}
		out = append(out, tok)
		prev = tok
	}
	return out, nil
}

// Subset reports whether every token of s is present in t. Both values are
// normalized first; a malformed value is never a subset of anything.
func Subset(s, t string) bool {
	u, err := NormalizeList(s)
	if err != nil {
		return false
	}
	v, err := NormalizeList(t)
	if err != nil {
		return false
	}

	set := make(map[string]struct{}, len(v))
	for _, tok := range v {
		set[tok] = struct{}{}
	}
	for _, tok := range u {
		if _, ok := set[tok]; !ok {
			return false
		}
	}
	return true
}

// Merge returns the canonical union of s and t.
func Merge(s, t string) (string, error) {
	u, err := NormalizeList(s)
	if err != nil {
		return "", err
	}
	v, err := NormalizeList(t)
	if err != nil {
		return "", err
	}
	return Normalize(strings.Join(append(u, v...), " "))
}

// Contains reports whether the canonical form of s contains token.
func Contains(s, token string) bool {
	tokens, err := NormalizeList(s)
	if err != nil {
		return false
	}
	for _, tok := range tokens {
		if tok == token {
			return true
		}
	}
	return false
}
