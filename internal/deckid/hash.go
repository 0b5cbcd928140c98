// Package deckid derives stable question identifiers from deck content, so a
// question keeps its review state across re-parses of its deck file.
package deckid

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// idLength is the number of hex characters kept from the content hash.
// 48 bits is plenty for a personal question bank.
const idLength = 12

// Normalize joins the question's locating fields after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings so that
// formatting-only edits do not change the derived id.
func Normalize(subject, chapter, text string) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// Joined with a newline to keep fields separated; otherwise adjacent
	// fields could run together and collide.
	return strings.Join([]string{
		normalizePart(subject),
		normalizePart(chapter),
		normalizePart(text),
	}, "\n")
}

// Derive hashes the normalized content and returns a short hex id.
func Derive(subject, chapter, text string) string {
	normalized := Normalize(subject, chapter, text)
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", sum)[:idLength]
}
