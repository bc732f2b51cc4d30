package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"history-stairs/internal/domain"
	"github.com/uptrace/bun"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID       string   `bun:"id,pk"`
	Position int      `bun:"position,notnull"`
	Prompt   string   `bun:"prompt,notnull"`
	Options  []string `bun:"options,type:jsonb,notnull"`
	Answer   string   `bun:"answer,notnull"`
}

// ImportQuestions replaces the stored bank with questions, keeping their order.
func ImportQuestions(ctx context.Context, db *bun.DB, questions []domain.Question) error {
	rows := make([]questionRow, 0, len(questions))
	for i, q := range questions {
		rows = append(rows, questionRow{
			ID:       q.ID,
			Position: i,
			Prompt:   q.Prompt,
			Options:  q.Options,
			Answer:   q.Answer,
		})
	}

	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
}
