// Package auth implements the challenge-response authentication scheme used
// while awaiting a client's first post-greeting line: salt generation and
// MD5(salt++password) verification, using crypto/rand for the salt and
// NewAuthError with an Op string for failures.
package auth

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	perrors "github.com/mateusmeyer/pjlink-server/internal/errors"
)

// maxSalt is 2^32, the exclusive upper bound for the salt's unsigned 32-bit
// value.
var maxSalt = new(big.Int).Lsh(big.NewInt(1), 32)

// NewSalt draws a cryptographically unpredictable unsigned 32-bit number
// and formats it as exactly 8 uppercase hex digits, zero-padded. The salt
// must never be reused across sessions; callers must call this once per
// connection.
func NewSalt() (string, error) {
	n, err := rand.Int(rand.Reader, maxSalt)
	if err != nil {
		return "", perrors.NewAuthError("auth.newSalt", err)
	}
	return fmt.Sprintf("%08X", n.Uint64()), nil
}

// ComputeHash renders MD5(salt ++ password) as 32 lowercase hex characters.
func ComputeHash(salt, password string) string {
	sum := md5.Sum([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}

// VerifyOffered reports whether offeredHash (the 32 ASCII bytes a client
// prefixes to its first post-auth line) matches ComputeHash(salt,
// password), using a constant-time comparison so hash verification never
// leaks timing information about the expected value.
func VerifyOffered(offeredHash []byte, salt, password string) bool {
	want := ComputeHash(salt, password)
	if len(offeredHash) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare(offeredHash, []byte(want)) == 1
}
