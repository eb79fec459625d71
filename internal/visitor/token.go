package visitor

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes は匿名トークンの乱数バイト数（256ビット）。
const tokenBytes = 32

// generateToken は暗号論的乱数から匿名トークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate visitor token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// validToken はクッキーの値が generateToken の出力形式かどうかを返す。
// 形式が異なる値はストレージに問い合わせずに未登録として扱う。
func validToken(s string) bool {
	if len(s) != tokenBytes*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
