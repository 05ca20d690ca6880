// Package fingerprint derives stable content-addressed cache keys from
// heterogeneous meal queries (text, image bytes, or both).
package fingerprint

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// imagePrefixLen bounds how much of an image payload is hashed. Two
// images identical in their first 2KB and total size share a
// fingerprint; that is a deliberate cheap similarity heuristic.
const imagePrefixLen = 2048

// NormalizedTextCap limits the stored fuzzy-search copy of a query.
const NormalizedTextCap = 500

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, trims, collapses whitespace runs, and strips
// punctuation so that trivially different spellings of the same query
// map to the same string. Total over any input; "" normalizes to "".
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = nonWord.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TruncateNormalized returns the normalized form capped for storage.
func TruncateNormalized(text string) string {
	s := Normalize(text)
	if len(s) > NormalizedTextCap {
		s = s[:NormalizedTextCap]
	}
	return s
}

// Text fingerprints a free-text query. Inputs that normalize to the
// same string always produce the same fingerprint. MD5 is used as a
// dedup key here, not a security boundary.
func Text(text string) string {
	return digest("text:" + Normalize(text))
}

// Image fingerprints an image payload from its first 2KB plus total
// byte length.
func Image(data []byte, totalSize int) string {
	prefix := data
	if len(prefix) > imagePrefixLen {
		prefix = prefix[:imagePrefixLen]
	}
	encoded := base64.StdEncoding.EncodeToString(prefix)
	return digest(fmt.Sprintf("image:%s:%d", encoded, totalSize))
}

// Combined fingerprints a query carrying both text and an image. With
// no image it degrades to the plain text fingerprint.
func Combined(text string, image []byte, totalSize int) string {
	tf := Text(text)
	if len(image) == 0 {
		return tf
	}
	return digest(tf + "|" + Image(image, totalSize))
}

func digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
