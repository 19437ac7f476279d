package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository/common"
)

const disputeColumns = `id, transaction_id, opened_by, reason, description, evidence, status,
	resolution, resolved_by, resolution_note, created_at, reviewed_at, resolved_at, updated_at`

type disputeRow struct {
	ID             uuid.UUID      `db:"id"`
	TransactionID  uuid.UUID      `db:"transaction_id"`
	OpenedBy       uuid.UUID      `db:"opened_by"`
	Reason         string         `db:"reason"`
	Description    string         `db:"description"`
	Evidence       pq.StringArray `db:"evidence"`
	Status         string         `db:"status"`
	Resolution     *string        `db:"resolution"`
	ResolvedBy     *uuid.UUID     `db:"resolved_by"`
	ResolutionNote *string        `db:"resolution_note"`
	CreatedAt      time.Time      `db:"created_at"`
	ReviewedAt     *time.Time     `db:"reviewed_at"`
	ResolvedAt     *time.Time     `db:"resolved_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r disputeRow) toEntity() *entity.Dispute {
	d := &entity.Dispute{
		ID:             r.ID,
		TransactionID:  r.TransactionID,
		OpenedBy:       r.OpenedBy,
		Reason:         valueobject.DisputeReason(r.Reason),
		Description:    r.Description,
		Evidence:       []string(r.Evidence),
		Status:         valueobject.DisputeStatus(r.Status),
		ResolvedBy:     r.ResolvedBy,
		ResolutionNote: r.ResolutionNote,
		CreatedAt:      r.CreatedAt,
		ReviewedAt:     r.ReviewedAt,
		ResolvedAt:     r.ResolvedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Resolution != nil {
		res := valueobject.Resolution(*r.Resolution)
		d.Resolution = &res
	}
	return d
}

type DisputeRepositoryAdapter struct {
	db *sqlx.DB
}

var _ repository.DisputeRepository = (*DisputeRepositoryAdapter)(nil)

func NewDisputeRepositoryAdapter(db *sqlx.DB) *DisputeRepositoryAdapter {
	return &DisputeRepositoryAdapter{db: db}
}

// Open проверяет активный спор, создаёт новый и переводит сделку в DISPUTE_OPEN одной транзакцией.
// Частичный уникальный индекс uq_disputes_active страхует от гонки двух вставок.
func (r *DisputeRepositoryAdapter) Open(ctx context.Context, d *entity.Dispute, t *entity.Transaction, expected valueobject.TransactionStatus) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var active int
		err := tx.GetContext(ctx, &active,
			`SELECT COUNT(*) FROM disputes WHERE transaction_id = $1 AND status <> $2`,
			d.TransactionID, string(valueobject.DisputeStatusResolved))
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить споры по сделке")
		}
		if active > 0 {
			return apperror.ErrAlreadyDisputed
		}

		if err := updateState(ctx, tx, t, expected); err != nil {
			return err
		}

		query := `INSERT INTO disputes (` + disputeColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
		_, err = tx.ExecContext(ctx, query,
			d.ID, d.TransactionID, d.OpenedBy, string(d.Reason), d.Description, pq.StringArray(d.Evidence),
			string(d.Status), resolutionValue(d.Resolution), d.ResolvedBy, d.ResolutionNote,
			d.CreatedAt, d.ReviewedAt, d.ResolvedAt, d.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.ErrAlreadyDisputed
			}
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать спор")
		}
		return nil
	})
}

func (r *DisputeRepositoryAdapter) StartReview(ctx context.Context, d *entity.Dispute) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = $2, reviewed_at = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`, d.ID, string(d.Status), d.ReviewedAt, d.UpdatedAt, string(valueobject.DisputeStatusOpen))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить спор")
	}
	return common.ExpectAffected(res, apperror.New(apperror.ErrCodeStateConflict, "спор уже на рассмотрении или закрыт"))
}

// Resolve закрывает спор и переводит сделку в итоговый статус одной транзакцией.
func (r *DisputeRepositoryAdapter) Resolve(ctx context.Context, d *entity.Dispute, t *entity.Transaction) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE disputes
			SET status = $2, resolution = $3, resolved_by = $4, resolution_note = $5, resolved_at = $6, updated_at = $7
			WHERE id = $1 AND status <> $2
		`, d.ID, string(d.Status), resolutionValue(d.Resolution), d.ResolvedBy, d.ResolutionNote, d.ResolvedAt, d.UpdatedAt)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось закрыть спор")
		}
		if err := common.ExpectAffected(res, apperror.New(apperror.ErrCodeStateConflict, "спор уже решён")); err != nil {
			return err
		}
		return updateState(ctx, tx, t, valueobject.StatusDisputeOpen)
	})
}

func (r *DisputeRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *DisputeRepositoryAdapter) FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) (*entity.Dispute, error) {
	return r.findOne(ctx, `WHERE transaction_id = $1 AND status <> 'RESOLVED'`, transactionID)
}

func (r *DisputeRepositoryAdapter) findOne(ctx context.Context, where string, arg interface{}) (*entity.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes ` + where
	row, err := common.GetOne[disputeRow](ctx, r.db, apperror.ErrDisputeNotFound, query, arg)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить спор")
	}
	return row.toEntity(), nil
}

func (r *DisputeRepositoryAdapter) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entity.Dispute, error) {
	var rows []disputeRow
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE transaction_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, transactionID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить споры")
	}
	return toDisputes(rows), nil
}

func (r *DisputeRepositoryAdapter) List(ctx context.Context, filter repository.DisputeFilter) ([]*entity.Dispute, int, error) {
	baseQuery := `FROM disputes WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.Status != "" {
		baseQuery += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать споры")
	}

	query := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		disputeColumns, baseQuery, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []disputeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить споры")
	}
	return toDisputes(rows), total, nil
}

func toDisputes(rows []disputeRow) []*entity.Dispute {
	out := make([]*entity.Dispute, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out
}

func resolutionValue(r *valueobject.Resolution) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}
