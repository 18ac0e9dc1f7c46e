package model

import "time"

// Session は認証済みユーザーのセッションを表す。
// セッションの発行は外部のIDプロバイダ連携（本サービスの対象外）が行い、
// 本サービスはCookieのセッションIDからユーザーIDを解決することだけに使う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
