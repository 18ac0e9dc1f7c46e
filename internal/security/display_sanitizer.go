// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DisplaySanitizerService はクライアントから往復してくる表示用文字列
// （カート項目の商品名など）をサニタイズする。これらの文字列は金額計算には
// 使われないが、注文レコードに保存され管理画面やメールで表示されるため、
// 格納前にマークアップを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DisplaySanitizerService は表示用文字列のサニタイズ機能のインターフェースを定義する。
type DisplaySanitizerService interface {
	// Sanitize は文字列からすべてのHTMLタグを除去し、前後の空白を取り除く。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// displaySanitizer はDisplaySanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type displaySanitizer struct {
	policy *bluemonday.Policy
}

// NewDisplaySanitizer はDisplaySanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去し、テキストのみを残す。
func NewDisplaySanitizer() *displaySanitizer {
	return &displaySanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は文字列からすべてのHTMLタグを除去する。
func (s *displaySanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
