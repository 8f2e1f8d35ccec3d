// Package telegram はTelegramトランスポート層を提供する。
// 更新の受信、ユーザー単位の直列ディスパッチ、コマンドと支払いイベントの
// ルーティング、応答の送信を担う。会話の中身はサービス層に委ねる。
package telegram

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/kokoro/internal/metrics"
	"github.com/hitoshi/kokoro/internal/security"
)

// api はテストで差し替えるtgbotapi.BotAPIの操作部分。
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// BotConfig はトランスポート層の設定。
type BotConfig struct {
	// PollTimeout はロングポーリングの秒数。
	PollTimeout int
	// MaxConcurrent は全ユーザー合計の同時処理数の上限。
	MaxConcurrent int
	// PaymentProviderToken が空の場合、購読ボタンは案内文のみを返す。
	PaymentProviderToken string
	// SubscriptionPriceMinor は通貨最小単位での購読価格（RUBならコペイカ）。
	SubscriptionPriceMinor int
	// SubscriptionCurrency はISO 4217の通貨コード。
	SubscriptionCurrency string
}

// Bot はTelegram更新の受信ループと各ハンドラーを束ねる。
type Bot struct {
	api        api
	dispatcher *Dispatcher
	cfg        BotConfig

	chat          ChatServiceInterface
	summaries     SummaryServiceInterface
	greetings     GreetingClassifierInterface
	subscriptions SubscriptionServiceInterface
	sanitizer     security.ReplySanitizerService
	collector     metrics.MetricsCollector
	logger        *slog.Logger
}

// NewBot はBotを生成する。
func NewBot(
	client api,
	cfg BotConfig,
	chat ChatServiceInterface,
	summaries SummaryServiceInterface,
	greetings GreetingClassifierInterface,
	subscriptions SubscriptionServiceInterface,
	sanitizer security.ReplySanitizerService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Bot {
	return &Bot{
		api:           client,
		dispatcher:    NewDispatcher(cfg.MaxConcurrent),
		cfg:           cfg,
		chat:          chat,
		summaries:     summaries,
		greetings:     greetings,
		subscriptions: subscriptions,
		sanitizer:     sanitizer,
		collector:     collector,
		logger:        logger,
	}
}

// Run はロングポーリングで更新を受信し、処理し続ける。
// コンテキストのキャンセルで受信を止め、処理中の作業を待ってから返る。
func (b *Bot) Run(ctx context.Context) error {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(updateCfg)

	b.logger.Info("bot started",
		slog.Int("poll_timeout", b.cfg.PollTimeout),
		slog.Int("max_concurrent", b.cfg.MaxConcurrent),
	)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.dispatcher.Wait()
			b.logger.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.dispatcher.Wait()
				b.logger.Info("bot stopped")
				return nil
			}
			b.route(ctx, update)
		}
	}
}

// route は更新1件を種類ごとのハンドラーへ振り分ける。
// 事前チェックアウトだけはTelegram側の応答期限が短いため、キューを通さず即応答する。
func (b *Bot) route(ctx context.Context, update tgbotapi.Update) {
	if update.PreCheckoutQuery != nil {
		b.handlePreCheckout(b.updateLogger(update.UpdateID, update.PreCheckoutQuery.From.ID), update.PreCheckoutQuery)
		return
	}

	if update.CallbackQuery != nil {
		query := update.CallbackQuery
		log := b.updateLogger(update.UpdateID, query.From.ID)
		b.dispatcher.Submit(query.From.ID, func() {
			b.handleCallback(ctx, log, query)
		})
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	userID := msg.From.ID
	log := b.updateLogger(update.UpdateID, userID)

	switch {
	case msg.SuccessfulPayment != nil:
		b.dispatcher.Submit(userID, func() {
			b.handlePayment(ctx, log, msg)
		})
	case msg.IsCommand():
		b.dispatcher.Submit(userID, func() {
			b.handleCommand(ctx, log, msg)
		})
	default:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return
		}
		b.dispatcher.Submit(userID, func() {
			b.handleChat(ctx, log, msg.Chat.ID, userID, text)
		})
	}
}

// updateLogger は更新1件の処理で使う相関ID付きロガーを返す。
func (b *Bot) updateLogger(updateID int, userID int64) *slog.Logger {
	return b.logger.With(
		slog.String("correlation_id", uuid.NewString()),
		slog.Int("update_id", updateID),
		slog.Int64("user_id", userID),
	)
}

// reply は応答本文を無害化してHTMLパースモードで送信する。
func (b *Bot) reply(log *slog.Logger, chatID int64, text string) {
	b.send(log, chatID, text, nil)
}

// replyWithKeyboard はインラインキーボード付きで送信する。
func (b *Bot) replyWithKeyboard(log *slog.Logger, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	b.send(log, chatID, text, &keyboard)
}

func (b *Bot) send(log *slog.Logger, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, b.sanitizer.Sanitize(text))
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Error("send failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}
