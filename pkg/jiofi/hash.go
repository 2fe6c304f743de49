package jiofi

import (
	"crypto/md5" //nolint:gosec // the device login protocol is MD5 based
	"encoding/hex"
	"strings"
)

// HashPassword computes the login digest the device expects:
// hex(MD5(challenge + lowercase(password))).
func HashPassword(challenge, password string) string {
	sum := md5.Sum([]byte(challenge + strings.ToLower(password))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
