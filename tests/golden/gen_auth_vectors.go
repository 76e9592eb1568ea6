//go:build ignore

// Generates the fixed authentication golden vector used by the
// authenticated-request test in tests/integration/scenarios_test.go: a known
// salt, password, and their MD5 challenge-response hash, so the test doesn't
// have to recompute MD5 itself to assert against.
// Run: go run ./tests/golden/gen_auth_vectors.go
package main

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

const (
	salt     = "01234567"
	password = "JBMIA"
)

func main() {
	sum := md5.Sum([]byte(salt + password))
	fmt.Printf("salt:     %s\n", salt)
	fmt.Printf("password: %s\n", password)
	fmt.Printf("hash:     %s\n", hex.EncodeToString(sum[:]))
}
