// Package security は送信コンテンツの無害化を提供する。
//
// ReplySanitizerService はモデルが生成した応答テキストをTelegramへ送る前に
// サニタイズする。TelegramのHTMLパースモードは限られたタグしか受け付けず、
// 未対応のタグが混ざるとメッセージ全体が送信エラーになるため、
// bluemondayライブラリの許可リストベースのポリシーで
// Telegramが解釈できるタグのみを通過させる。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// ReplySanitizerService は応答テキストのサニタイズ機能のインターフェースを定義する。
// Telegramへの全ての送信メッセージに対して使用される。
type ReplySanitizerService interface {
	// Sanitize は応答テキストをサニタイズしてTelegramのHTMLパースモードで
	// 安全に送信できるテキストを返す。
	// 許可タグ（b, strong, i, em, u, ins, s, strike, del, code, pre, a）のみを
	// 通過させ、それ以外のタグは除去してテキスト内容だけを残す。
	// aタグのhref属性はhttpsとhttpスキームのみ許可される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(text string) string
}

// replySanitizer はReplySanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type replySanitizer struct {
	policy *bluemonday.Policy
}

// codeLanguageClass はTelegramがシンタックスハイライト用に認識する
// codeタグのclass属性の形式。
var codeLanguageClass = regexp.MustCompile(`^language-[a-zA-Z0-9#+.-]+$`)

// NewReplySanitizer はReplySanitizerServiceの新しいインスタンスを生成する。
// 初期化時にTelegramのHTMLパースモード仕様に合わせたポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: b, strong, i, em, u, ins, s, strike, del, code, pre, a
//   - aタグ: href属性を許可、スキームはhttpsとhttpのみ
//   - codeタグ: class="language-..." 形式の属性のみ許可
//   - target, rel等の属性はTelegramが拒否するため付与しない
func NewReplySanitizer() *replySanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"b", "strong", "i", "em",
		"u", "ins", "s", "strike", "del",
		"code", "pre",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("https", "http")

	p.AllowAttrs("class").Matching(codeLanguageClass).OnElements("code")

	return &replySanitizer{
		policy: p,
	}
}

// Sanitize は応答テキストをサニタイズして安全なテキストを返す。
func (s *replySanitizer) Sanitize(text string) string {
	return s.policy.Sanitize(text)
}
