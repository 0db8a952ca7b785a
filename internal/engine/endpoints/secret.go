package endpoints

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

const secretPrefix = "whsec_"

// GenerateSecret returns 256 random bits, hex encoded, with a recognisable prefix.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return secretPrefix + hex.EncodeToString(b), nil
}

// MatchSecret compares in constant time. An empty token never matches.
func MatchSecret(stored, presented string) bool {
	if presented == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
