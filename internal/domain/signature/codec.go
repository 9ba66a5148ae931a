// Package signature implements the gateway request signing protocol:
// an HMAC-SHA512 digest over a canonical, form-encoded parameter string.
package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Canonicalize builds the deterministic signing string for the given
// parameters: empty values are dropped, names are sorted lexicographically by
// their raw (unencoded) form, and each name and value is form-encoded
// (space becomes '+') before joining as name=value pairs with '&'.
func Canonicalize(params url.Values) string {
	names := make([]string, 0, len(params))
	for name := range params {
		if params.Get(name) == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(name)))
	}
	return b.String()
}

// Sign computes the lowercase hex HMAC-SHA512 digest of the canonical string
// for params under the given secret. It is a pure function of its inputs.
func Sign(params url.Values, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(Canonicalize(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the digest for params (with sigField removed) and
// compares it against provided. The comparison is case-insensitive and
// constant-time. A missing or empty provided digest fails closed.
func Verify(params url.Values, secret, sigField, provided string) bool {
	if provided == "" {
		return false
	}

	rest := make(url.Values, len(params))
	for name, vals := range params {
		if name == sigField {
			continue
		}
		rest[name] = vals
	}

	expected := Sign(rest, secret)
	got := strings.ToLower(provided)
	if len(got) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
