package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hitoshi/kokoro/internal/chat"
	"github.com/hitoshi/kokoro/internal/greeting"
	"github.com/hitoshi/kokoro/internal/model"
)

// ChatServiceInterface は通常メッセージへの応答生成を抽象化する。
type ChatServiceInterface interface {
	Respond(ctx context.Context, userID int64, text string) (*chat.Reply, error)
}

// SummaryServiceInterface は要約の取得（必要なら生成）を抽象化する。
type SummaryServiceInterface interface {
	Ensure(ctx context.Context, userID int64) (string, error)
}

// GreetingClassifierInterface は挨拶の場合分けを抽象化する。
type GreetingClassifierInterface interface {
	Classify(ctx context.Context, userID int64) (greeting.Kind, error)
}

// SubscriptionServiceInterface は購読の有効化を抽象化する。
type SubscriptionServiceInterface interface {
	Activate(ctx context.Context, userID int64) (time.Time, error)
}

// handleCommand は認識済みコマンドを処理する。未知のコマンドは無視する。
func (b *Bot) handleCommand(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, log, msg)
	case "pricing":
		b.handlePricing(log, msg)
	case "subscribe":
		b.handleSubscribe(log, msg)
	case "summary":
		b.handleSummary(ctx, log, msg)
	default:
		log.Info("unknown command ignored", slog.String("command", msg.Command()))
	}
}

// handleStart は会話の空白期間に応じた挨拶を返す。
func (b *Bot) handleStart(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	kind, err := b.greetings.Classify(ctx, msg.From.ID)
	if err != nil {
		log.Error("greeting classification failed", slog.String("error", err.Error()))
		return
	}
	b.reply(log, msg.Chat.ID, greetingText(kind))
}

// handlePricing は料金説明と購読ボタンを返す。
func (b *Bot) handlePricing(log *slog.Logger, msg *tgbotapi.Message) {
	b.replyWithKeyboard(log, msg.Chat.ID, pricingText, subscribeKeyboard())
}

// handleSubscribe は/pricingと同じ案内を返す。入口を複数残すための別名。
func (b *Bot) handleSubscribe(log *slog.Logger, msg *tgbotapi.Message) {
	b.replyWithKeyboard(log, msg.Chat.ID, pricingText, subscribeKeyboard())
}

// handleSummary は現在の要約を返す。履歴が無ければその旨を案内する。
func (b *Bot) handleSummary(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	content, err := b.summaries.Ensure(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, model.ErrNoConversation) {
			b.reply(log, msg.Chat.ID, noConversationText)
			return
		}
		log.Error("summary request failed", slog.String("error", err.Error()))
		b.reply(log, msg.Chat.ID, summaryFailureText)
		return
	}
	b.reply(log, msg.Chat.ID, summaryText(content))
}

// handleChat は通常メッセージをチャットサービスへ渡し、応答を送信する。
func (b *Bot) handleChat(ctx context.Context, log *slog.Logger, chatID, userID int64, text string) {
	reply, err := b.chat.Respond(ctx, userID, text)
	if err != nil {
		log.Error("chat processing failed", slog.String("error", err.Error()))
		return
	}
	b.reply(log, chatID, reply.Text)
}

// handleCallback はインラインキーボードの押下を処理する。
func (b *Bot) handleCallback(ctx context.Context, log *slog.Logger, query *tgbotapi.CallbackQuery) {
	// まず押下を確認してボタンのローディング表示を消す。
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Error("callback answer failed", slog.String("error", err.Error()))
	}

	if query.Data != subscribeCallbackData || query.Message == nil {
		return
	}
	b.sendInvoice(log, query.Message.Chat.ID)
}

// sendInvoice は購読の請求書を送信する。決済トークンが未設定なら案内文を返す。
func (b *Bot) sendInvoice(log *slog.Logger, chatID int64) {
	if b.cfg.PaymentProviderToken == "" {
		b.reply(log, chatID, subscribeStubText)
		return
	}

	invoice := tgbotapi.NewInvoice(
		chatID,
		invoiceTitle,
		invoiceDescription,
		invoicePayload,
		b.cfg.PaymentProviderToken,
		"",
		b.cfg.SubscriptionCurrency,
		[]tgbotapi.LabeledPrice{{Label: invoiceTitle, Amount: b.cfg.SubscriptionPriceMinor}},
	)
	if _, err := b.api.Send(invoice); err != nil {
		log.Error("invoice send failed", slog.String("error", err.Error()))
	}
}

// handlePreCheckout は支払い直前の確認へ常に承認で応答する。
// 金額と内容の検証は請求書発行時に済んでいるため、ここで拒否する理由はない。
func (b *Bot) handlePreCheckout(log *slog.Logger, query *tgbotapi.PreCheckoutQuery) {
	response := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	}
	if _, err := b.api.Request(response); err != nil {
		log.Error("precheckout answer failed", slog.String("error", err.Error()))
		return
	}
	log.Info("precheckout approved",
		slog.String("currency", query.Currency),
		slog.Int("total_amount", query.TotalAmount),
	)
}

// handlePayment は支払い完了を受けて購読を有効化し、確認を返す。
func (b *Bot) handlePayment(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	payment := msg.SuccessfulPayment
	expiresAt, err := b.subscriptions.Activate(ctx, msg.From.ID)
	if err != nil {
		// 支払いは受領済みのため、反映失敗はログに残して運用側で突合する。
		log.Error("subscription activation failed",
			slog.String("currency", payment.Currency),
			slog.Int("total_amount", payment.TotalAmount),
			slog.String("error", err.Error()),
		)
		return
	}
	b.collector.RecordPayment()
	log.Info("subscription activated",
		slog.String("currency", payment.Currency),
		slog.Int("total_amount", payment.TotalAmount),
		slog.Time("expires_at", expiresAt),
	)
	b.reply(log, msg.Chat.ID, paymentConfirmedText(expiresAt))
}
