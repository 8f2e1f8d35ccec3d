// Package conversation は補完リクエスト用のプロンプト組み立てを提供する。
package conversation

import (
	"context"
	"fmt"

	"github.com/hitoshi/kokoro/internal/model"
	"github.com/hitoshi/kokoro/internal/provider"
	"github.com/hitoshi/kokoro/internal/repository"
)

// SystemPrompt はアシスタントの振る舞いを定めるシステム指示。
const SystemPrompt = "Ты — поддерживающий психологический ассистент.\n" +
	"Ты отвечаешь мягко, спокойно и рационально.\n" +
	"Ты помогаешь человеку разобраться в своих чувствах и мыслях.\n" +
	"Ты не ставишь диагнозы и не даёшь медицинских или юридических советов.\n" +
	"Ты не осуждаешь и не обесцениваешь чувства.\n" +
	"Ты можешь задавать аккуратные уточняющие вопросы.\n" +
	"Если тема кажется серьёзной или кризисной, мягко рекомендуй обратиться к специалисту."

// summaryPreamble は要約をシステムターンとして挿入する際の前置き。
const summaryPreamble = "Краткое резюме предыдущих разговоров:\n"

// Assembler は会話履歴と要約から補完リクエストのターン列を組み立てる。
type Assembler struct {
	messageRepo repository.MessageRepository
	summaryRepo repository.SummaryRepository

	maxHistory int
}

// NewAssembler はAssemblerの新しいインスタンスを生成する。
func NewAssembler(
	messageRepo repository.MessageRepository,
	summaryRepo repository.SummaryRepository,
	maxHistory int,
) *Assembler {
	return &Assembler{
		messageRepo: messageRepo,
		summaryRepo: summaryRepo,
		maxHistory:  maxHistory,
	}
}

// BuildPrompt は送信用のターン列を組み立てる。
// 先頭はシステム指示、要約が存在すれば2つ目のシステムターンとして続け、
// その後に直近maxHistory件の履歴を時系列順で並べる。
// 返すターン列は履歴maxHistory件+システム2件を超えない。
func (a *Assembler) BuildPrompt(ctx context.Context, userID int64) ([]provider.Turn, error) {
	history, err := a.messageRepo.ListRecent(ctx, userID, a.maxHistory)
	if err != nil {
		return nil, fmt.Errorf("会話履歴の取得に失敗しました: %w", err)
	}

	summary, err := a.summaryRepo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("要約の取得に失敗しました: %w", err)
	}

	turns := make([]provider.Turn, 0, len(history)+2)
	turns = append(turns, provider.Turn{Role: model.RoleSystem, Content: SystemPrompt})
	if summary != nil && summary.Content != "" {
		turns = append(turns, provider.Turn{
			Role:    model.RoleSystem,
			Content: summaryPreamble + summary.Content,
		})
	}
	for _, m := range history {
		turns = append(turns, provider.Turn{Role: m.Role, Content: m.Content})
	}

	return turns, nil
}
