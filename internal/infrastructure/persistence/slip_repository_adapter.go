package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository/common"
)

const slipColumns = `id, transaction_id, uploader_id, claimed_amount, slip_url, status,
	reviewer_id, review_note, created_at, reviewed_at`

type slipRow struct {
	ID            uuid.UUID  `db:"id"`
	TransactionID uuid.UUID  `db:"transaction_id"`
	UploaderID    uuid.UUID  `db:"uploader_id"`
	ClaimedAmount int64      `db:"claimed_amount"`
	SlipURL       string     `db:"slip_url"`
	Status        string     `db:"status"`
	ReviewerID    *uuid.UUID `db:"reviewer_id"`
	ReviewNote    *string    `db:"review_note"`
	CreatedAt     time.Time  `db:"created_at"`
	ReviewedAt    *time.Time `db:"reviewed_at"`
}

func (r slipRow) toEntity() *entity.PaymentSlip {
	return &entity.PaymentSlip{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		UploaderID:    r.UploaderID,
		ClaimedAmount: r.ClaimedAmount,
		SlipURL:       r.SlipURL,
		Status:        valueobject.SlipStatus(r.Status),
		ReviewerID:    r.ReviewerID,
		ReviewNote:    r.ReviewNote,
		CreatedAt:     r.CreatedAt,
		ReviewedAt:    r.ReviewedAt,
	}
}

type SlipRepositoryAdapter struct {
	db *sqlx.DB
}

var _ repository.SlipRepository = (*SlipRepositoryAdapter)(nil)

func NewSlipRepositoryAdapter(db *sqlx.DB) *SlipRepositoryAdapter {
	return &SlipRepositoryAdapter{db: db}
}

func (r *SlipRepositoryAdapter) Submit(ctx context.Context, slip *entity.PaymentSlip, t *entity.Transaction, expected valueobject.TransactionStatus) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		// квитанции блокируются раньше сделки, в том же порядке, что и в Review
		supersede := `
			UPDATE payment_slips SET status = $2, review_note = $3, reviewed_at = $4
			WHERE transaction_id = $1 AND status = $5
		`
		_, err := tx.ExecContext(ctx, supersede,
			slip.TransactionID, string(valueobject.SlipStatusRejected), entity.SupersededNote, slip.CreatedAt,
			string(valueobject.SlipStatusPending),
		)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось закрыть прежние квитанции")
		}
		if err := updateState(ctx, tx, t, expected); err != nil {
			return err
		}
		query := `INSERT INTO payment_slips (` + slipColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err = tx.ExecContext(ctx, query,
			slip.ID, slip.TransactionID, slip.UploaderID, slip.ClaimedAmount, slip.SlipURL, string(slip.Status),
			slip.ReviewerID, slip.ReviewNote, slip.CreatedAt, slip.ReviewedAt,
		)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить квитанцию")
		}
		return nil
	})
}

func (r *SlipRepositoryAdapter) Review(ctx context.Context, slip *entity.PaymentSlip, t *entity.Transaction, expected valueobject.TransactionStatus) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			UPDATE payment_slips SET status = $2, reviewer_id = $3, review_note = $4, reviewed_at = $5
			WHERE id = $1 AND status = $6
			  AND id = (
				SELECT id FROM payment_slips WHERE transaction_id = $7 ORDER BY created_at DESC LIMIT 1
			  )
		`
		res, err := tx.ExecContext(ctx, query,
			slip.ID, string(slip.Status), slip.ReviewerID, slip.ReviewNote, slip.ReviewedAt,
			string(valueobject.SlipStatusPending), slip.TransactionID,
		)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить квитанцию")
		}
		if err := common.ExpectAffected(res, apperror.New(apperror.ErrCodeStateConflict, "квитанция уже проверена или заменена новой")); err != nil {
			return err
		}
		return updateState(ctx, tx, t, expected)
	})
}

func (r *SlipRepositoryAdapter) Latest(ctx context.Context, transactionID uuid.UUID) (*entity.PaymentSlip, error) {
	query := `SELECT ` + slipColumns + ` FROM payment_slips WHERE transaction_id = $1 ORDER BY created_at DESC LIMIT 1`
	row, err := common.GetOne[slipRow](ctx, r.db, apperror.ErrSlipNotFound, query, transactionID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить квитанцию")
	}
	return row.toEntity(), nil
}

func (r *SlipRepositoryAdapter) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entity.PaymentSlip, error) {
	query := `SELECT ` + slipColumns + ` FROM payment_slips WHERE transaction_id = $1 ORDER BY created_at DESC`
	var rows []slipRow
	if err := r.db.SelectContext(ctx, &rows, query, transactionID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить квитанции")
	}
	out := make([]*entity.PaymentSlip, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}
