package hub

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// CodeAlphabet leaves out 0/O and 1/I so codes survive being read aloud.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func GenerateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(CodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = CodeAlphabet[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode upper-cases code and reports whether it could be a room code.
func NormalizeCode(code string, length int) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != length {
		return "", false
	}
	for _, c := range code {
		if !strings.ContainsRune(CodeAlphabet, c) {
			return "", false
		}
	}
	return code, true
}
