package model

import "time"

// Visitor は匿名訪問者のサーバー側レコードを表す。
// Tokenはクッキーで配布する不透明な識別子で、個人情報から導出しない。
// ExpiresAtは作成時刻から固定の保持期間で決まり、アクセスがあっても延長しない。
type Visitor struct {
	ID         int64
	Token      string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

// IsExpired は指定時刻の時点で期限切れかどうかを返す。
func (v *Visitor) IsExpired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
