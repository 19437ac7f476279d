package persistence

import (
	"context"
	"errors"
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

const transactionColumns = `id, invite_code, title, description, seller_id, buyer_id,
	amount, fee_percent, fee_amount, net_amount, buyer_total, seller_payout, fee_payer, status,
	invite_expires_at, payment_expires_at, auto_release_at, paid_at, delivered_at, completed_at,
	cancelled_at, expired_at, created_at, updated_at`

type transactionRow struct {
	ID               uuid.UUID  `db:"id"`
	InviteCode       string     `db:"invite_code"`
	Title            string     `db:"title"`
	Description      string     `db:"description"`
	SellerID         uuid.UUID  `db:"seller_id"`
	BuyerID          *uuid.UUID `db:"buyer_id"`
	Amount           int64      `db:"amount"`
	FeePercent       float64    `db:"fee_percent"`
	FeeAmount        int64      `db:"fee_amount"`
	NetAmount        int64      `db:"net_amount"`
	BuyerTotal       int64      `db:"buyer_total"`
	SellerPayout     int64      `db:"seller_payout"`
	FeePayer         string     `db:"fee_payer"`
	Status           string     `db:"status"`
	InviteExpiresAt  time.Time  `db:"invite_expires_at"`
	PaymentExpiresAt time.Time  `db:"payment_expires_at"`
	AutoReleaseAt    *time.Time `db:"auto_release_at"`
	PaidAt           *time.Time `db:"paid_at"`
	DeliveredAt      *time.Time `db:"delivered_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	CancelledAt      *time.Time `db:"cancelled_at"`
	ExpiredAt        *time.Time `db:"expired_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r transactionRow) toEntity() *entity.Transaction {
	return &entity.Transaction{
		ID:               r.ID,
		InviteCode:       r.InviteCode,
		Title:            r.Title,
		Description:      r.Description,
		SellerID:         r.SellerID,
		BuyerID:          r.BuyerID,
		Amount:           r.Amount,
		FeePercent:       r.FeePercent,
		FeeAmount:        r.FeeAmount,
		NetAmount:        r.NetAmount,
		BuyerTotal:       r.BuyerTotal,
		SellerPayout:     r.SellerPayout,
		FeePayer:         valueobject.FeePayer(r.FeePayer),
		Status:           valueobject.TransactionStatus(r.Status),
		InviteExpiresAt:  r.InviteExpiresAt,
		PaymentExpiresAt: r.PaymentExpiresAt,
		AutoReleaseAt:    r.AutoReleaseAt,
		PaidAt:           r.PaidAt,
		DeliveredAt:      r.DeliveredAt,
		CompletedAt:      r.CompletedAt,
		CancelledAt:      r.CancelledAt,
		ExpiredAt:        r.ExpiredAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type TransactionRepositoryAdapter struct {
	db *sqlx.DB
}

var _ repository.TransactionRepository = (*TransactionRepositoryAdapter)(nil)

func NewTransactionRepositoryAdapter(db *sqlx.DB) *TransactionRepositoryAdapter {
	return &TransactionRepositoryAdapter{db: db}
}

func (r *TransactionRepositoryAdapter) Create(ctx context.Context, t *entity.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.InviteCode, t.Title, t.Description, t.SellerID, t.BuyerID,
		t.Amount, t.FeePercent, t.FeeAmount, t.NetAmount, t.BuyerTotal, t.SellerPayout,
		string(t.FeePayer), string(t.Status),
		t.InviteExpiresAt, t.PaymentExpiresAt, t.AutoReleaseAt, t.PaidAt, t.DeliveredAt, t.CompletedAt,
		t.CancelledAt, t.ExpiredAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Wrap(err, apperror.ErrCodeConflict, "код приглашения уже занят")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать сделку")
	}
	return nil
}

func (r *TransactionRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *TransactionRepositoryAdapter) FindByInviteCode(ctx context.Context, code string) (*entity.Transaction, error) {
	t, err := r.findOne(ctx, "invite_code = $1", code)
	if apperror.IsNotFound(err) {
		return nil, apperror.ErrInviteNotFound
	}
	return t, err
}

func (r *TransactionRepositoryAdapter) findOne(ctx context.Context, where string, arg interface{}) (*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where
	row, err := common.GetOne[transactionRow](ctx, r.db, apperror.ErrTransactionNotFound, query, arg)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить сделку")
	}
	return row.toEntity(), nil
}

func (r *TransactionRepositoryAdapter) ListByUser(ctx context.Context, userID uuid.UUID, filter repository.TransactionFilter) ([]*entity.Transaction, int, error) {
	return r.list(ctx, "(seller_id = $1 OR buyer_id = $1)", []interface{}{userID}, filter)
}

func (r *TransactionRepositoryAdapter) List(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, int, error) {
	return r.list(ctx, "1=1", nil, filter)
}

func (r *TransactionRepositoryAdapter) list(ctx context.Context, where string, args []interface{}, filter repository.TransactionFilter) ([]*entity.Transaction, int, error) {
	baseQuery := `FROM transactions WHERE ` + where
	argNum := len(args) + 1

	if filter.Status != "" {
		baseQuery += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать сделки")
	}

	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, baseQuery, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []transactionRow
	if err := r.db.SelectContext(ctx, &rows, selectQuery, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить сделки")
	}
	return toTransactions(rows), total, nil
}

func (r *TransactionRepositoryAdapter) UpdateState(ctx context.Context, t *entity.Transaction, expected valueobject.TransactionStatus) error {
	return updateState(ctx, r.db, t, expected)
}

// updateState условный UPDATE по статусу; работает и с *sqlx.DB, и внутри *sqlx.Tx.
func updateState(ctx context.Context, ex sqlx.ExecerContext, t *entity.Transaction, expected valueobject.TransactionStatus) error {
	query := `
		UPDATE transactions
		SET status = $3, auto_release_at = $4, paid_at = $5, delivered_at = $6, completed_at = $7,
		    cancelled_at = $8, expired_at = $9, updated_at = $10
		WHERE id = $1 AND status = $2
	`
	res, err := ex.ExecContext(ctx, query,
		t.ID, string(expected), string(t.Status),
		t.AutoReleaseAt, t.PaidAt, t.DeliveredAt, t.CompletedAt, t.CancelledAt, t.ExpiredAt, t.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус сделки")
	}
	if err := common.ExpectAffected(res, apperror.ErrStatusChanged); err != nil {
		if apperror.IsStateConflict(err) {
			return err
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус сделки")
	}
	return nil
}

func (r *TransactionRepositoryAdapter) AssignBuyer(ctx context.Context, t *entity.Transaction) error {
	query := `
		UPDATE transactions SET buyer_id = $2, updated_at = $3
		WHERE id = $1 AND buyer_id IS NULL AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, t.ID, t.BuyerID, t.UpdatedAt, string(valueobject.StatusWaitingPayment))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось назначить покупателя")
	}
	return common.ExpectAffected(res, apperror.New(apperror.ErrCodeStateConflict, "у сделки уже есть покупатель"))
}

func (r *TransactionRepositoryAdapter) FindExpirable(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE status IN ($1, $4)
		  AND (payment_expires_at <= $2 OR (buyer_id IS NULL AND invite_expires_at <= $2))
		ORDER BY created_at
		LIMIT $3
	`
	var rows []transactionRow
	if err := r.db.SelectContext(ctx, &rows, query, string(valueobject.StatusWaitingPayment), now, limit,
		string(valueobject.StatusPaymentVerifying)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось найти просроченные сделки")
	}
	return toTransactions(rows), nil
}

func (r *TransactionRepositoryAdapter) FindAutoReleasable(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 AND auto_release_at IS NOT NULL AND auto_release_at <= $2
		ORDER BY auto_release_at
		LIMIT $3
	`
	var rows []transactionRow
	if err := r.db.SelectContext(ctx, &rows, query, string(valueobject.StatusDeliveredPending), now, limit); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось найти сделки для автозавершения")
	}
	return toTransactions(rows), nil
}

func toTransactions(rows []transactionRow) []*entity.Transaction {
	out := make([]*entity.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
