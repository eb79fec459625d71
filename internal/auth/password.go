package auth

import "crypto/subtle"

// 比較用バッファの長さ。これを超えるパスワードは扱わない。
const passwordBufferSize = 256

// VerifyPassword は入力されたパスワードが設定値と一致するかを判定する。
// 固定長のバッファ同士を比較し、処理時間がパスワードの一致位置や長さに依存しないようにする。
// 設定値が空の場合は常に false を返す。
func VerifyPassword(input, stored string) bool {
	if stored == "" || input == "" {
		return false
	}

	var inputBuf, storedBuf [passwordBufferSize]byte
	copy(inputBuf[:], input)
	copy(storedBuf[:], stored)

	equal := subtle.ConstantTimeCompare(inputBuf[:], storedBuf[:])
	sameLen := subtle.ConstantTimeEq(int32(len(input)), int32(len(stored)))
	fits := len(input) <= passwordBufferSize && len(stored) <= passwordBufferSize

	return equal&sameLen == 1 && fits
}
