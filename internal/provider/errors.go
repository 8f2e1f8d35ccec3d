package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Error は補完APIの呼び出し失敗を表す。
// StatusCodeが0の場合はネットワークまたはタイムアウトの失敗。
type Error struct {
	StatusCode int
	Message    string
	Temporary  bool
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("補完APIがステータス %d を返しました: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("補完APIの呼び出しに失敗しました: %s", e.Message)
}

// IsTemporary はエラーが一時的な失敗（時間を置けば回復しうる失敗）かどうかを返す。
// *Error以外のエラー（レスポンスのパース失敗など）は恒久的な失敗として扱う。
func IsTemporary(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Temporary
	}
	return false
}

// transientStatus は再試行で回復しうるHTTPステータスかどうかを判定する。
// 429と5xxは一時的、その他の4xxは認証や入力の誤りとして恒久的に扱う。
func transientStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}
