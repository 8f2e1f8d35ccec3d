package telegram

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hitoshi/kokoro/internal/greeting"
)

// ユーザーに見える文面はすべてここに集める。本文はロシア語。

const firstContactText = "Здравствуйте.\n\n" +
	"Здесь не нужно подбирать правильные слова или что-то объяснять «как надо».\n" +
	"Я постараюсь быть рядом и помочь вам разобраться в том, что сейчас происходит.\n\n" +
	"Пишите столько и так, как вам комфортно."

const returningLongText = "Прошло некоторое время с нашего последнего разговора.\n\n" +
	"Если вам важно — мы можем спокойно продолжить или начать с того, " +
	"что сейчас для вас актуально."

const returningShortText = "Рада снова быть с вами на связи.\n\n" +
	"Вы можете продолжить с того места, где остановились, " +
	"или написать о том, что сейчас для вас важно."

const pricingText = "Подписка на психологический ИИ-ассистент\n\n" +
	"Стоимость: 999 ₽ за 30 дней\n\n" +
	"Подписка даёт доступ к общению без дневных ограничений " +
	"и позволяет сохранять длительную историю диалога.\n\n" +
	"Подписка является необязательной.\n" +
	"Базовый функционал доступен бесплатно.\n\n" +
	"Это не медицинская и не психотерапевтическая услуга."

const subscribeStubText = "Спасибо за интерес к подписке.\n\n" +
	"Оплата будет доступна в ближайшее время.\n" +
	"Я сообщу, когда можно будет оформить подписку."

const noConversationText = "Пока у нас ещё не было разговора, который можно было бы обобщить."

const summaryFailureText = "Сейчас не получилось собрать резюме.\n\n" +
	"Попробуйте, пожалуйста, ещё раз немного позже."

// invoiceTitle と invoiceDescription はTelegram請求書の表示項目。
const (
	invoiceTitle       = "Подписка на 30 дней"
	invoiceDescription = "Общение без дневных ограничений и длительная история диалога."
	invoicePayload     = "subscription_30d"
)

// subscribeCallbackData は購読ボタンのコールバック識別子。
const subscribeCallbackData = "subscribe_start"

// greetingText は挨拶種別に対応する本文を返す。
func greetingText(kind greeting.Kind) string {
	switch kind {
	case greeting.KindFirstContact:
		return firstContactText
	case greeting.KindReturningLong:
		return returningLongText
	default:
		return returningShortText
	}
}

// summaryText は /summary の応答本文を組み立てる。
func summaryText(content string) string {
	return "Вот как я сейчас вижу общую картину нашего разговора.\n\n" +
		content + "\n\n" +
		"Если что-то откликается — можно продолжить с этого места.\n" +
		"Если нет — вы можете поправить или написать о том, что сейчас важнее."
}

// paymentConfirmedText は支払い完了の通知本文を組み立てる。
func paymentConfirmedText(expiresAt time.Time) string {
	return fmt.Sprintf(
		"Спасибо, оплата прошла успешно.\n\n"+
			"Подписка активна до %s.\n"+
			"Теперь можно общаться без дневных ограничений.",
		expiresAt.Format("02.01.2006"),
	)
}

// subscribeKeyboard は購読開始ボタン付きのインラインキーボードを返す。
func subscribeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🟢 Оформить подписку", subscribeCallbackData),
		),
	)
}
