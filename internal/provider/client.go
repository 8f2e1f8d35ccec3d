// Package provider はOpenAI互換の補完APIクライアントを提供する。
// /chat/completions エンドポイントを呼び出し、会話ターン列から応答テキストを得る。
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/kokoro/internal/model"
)

// Turn は補完リクエストに渡す会話ターンを表す。
type Turn struct {
	Role    model.Role
	Content string
}

// Completer は会話ターン列から応答テキストを生成するインターフェース。
type Completer interface {
	// Complete はターン列と温度を渡して応答テキストを取得する。
	// 失敗時は*Errorまたはラップ済みエラーを返す。
	Complete(ctx context.Context, turns []Turn, temperature float64) (string, error)
}

// Client はOpenAI互換APIのクライアント。
// vLLMやLiteLLMなど /chat/completions を実装するエンドポイントであれば利用できる。
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient はClientを生成する。
// baseURLは /v1 プレフィックスまで含める（例: "https://api.openai.com/v1"）。
// apiIntervalが正の場合、リクエスト間隔をその値以上に保つ。
func NewClient(baseURL, apiKey, model string, timeout, apiInterval time.Duration, logger *slog.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")

	var limiter *rate.Limiter
	if apiInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(apiInterval), 1)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// Complete はターン列と温度を補完APIに渡して応答テキストを取得する。
// HTTP 429/5xxとネットワーク・タイムアウト失敗はTemporaryな*Errorとして返す。
func (c *Client) Complete(ctx context.Context, turns []Turn, temperature float64) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("補完リクエストにターンが1件もありません")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &Error{Message: "リクエスト間隔の待機が中断されました: " + err.Error(), Temporary: true}
		}
	}

	messages := make([]oaiMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, oaiMessage{Role: string(turn.Role), Content: turn.Content})
	}

	reqBody := oaiChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("補完APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", &Error{Message: err.Error(), Temporary: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		c.logger.Error("補完APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("error", msg),
		)
		return "", &Error{
			StatusCode: resp.StatusCode,
			Message:    msg,
			Temporary:  transientStatus(resp.StatusCode),
		}
	}

	var chatResp oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("補完APIが選択肢を1件も返しませんでした")
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("補完APIが空の応答を返しました")
	}

	return text, nil
}

// OpenAI互換のリクエスト/レスポンス型。

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// compile-time interface check
var _ Completer = (*Client)(nil)
