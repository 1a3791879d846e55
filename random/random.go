// Package random produces random strings for slugs, nonces and references.
package random

import (
	crand "crypto/rand"
	"encoding/hex"
	"math/big"
	mrand "math/rand"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const lower = "0123456789abcdefghijklmnopqrstuvwxyz"

// String is not suitable for secrets.
func String(length int) string {
	return pick(charset, length)
}

// Lower returns a lowercase alphanumeric string, usable inside slugs.
func Lower(length int) string {
	return pick(lower, length)
}

func pick(set string, length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = set[mrand.Intn(len(set))]
	}
	return string(b)
}

func StringSecure(length int) (string, error) {
	b := make([]byte, length)
	l := big.NewInt(int64(len(charset)))
	for i := range b {
		num, err := crand.Int(crand.Reader, l)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

// Hex returns n random bytes hex encoded, prefixed with 0x.
func Hex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}
