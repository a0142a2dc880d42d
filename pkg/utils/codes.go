package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet for access codes: no ambiguous characters (0/O, 1/l/I).
const codeAlphabet = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ"

// GenerateAccessCode returns a fresh login code for the single-user UI.
func GenerateAccessCode() (string, error) {
	return gonanoid.Generate(codeAlphabet, 12)
}
