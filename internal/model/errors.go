// Package model はドメインモデルを定義する。
package model

import "errors"

// ErrNoConversation は会話履歴が1件も存在しないユーザーに対して
// 履歴前提の操作（要約の取得など）を行ったことを表す。
var ErrNoConversation = errors.New("会話履歴がありません")
