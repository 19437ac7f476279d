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

const messageColumns = `id, seq, transaction_id, sender_id, sender_name, type, content, image_url,
	is_read, read_at, is_deleted, created_at`

type messageRow struct {
	ID            uuid.UUID  `db:"id"`
	Seq           int64      `db:"seq"`
	TransactionID uuid.UUID  `db:"transaction_id"`
	SenderID      uuid.UUID  `db:"sender_id"`
	SenderName    string     `db:"sender_name"`
	Type          string     `db:"type"`
	Content       *string    `db:"content"`
	ImageURL      *string    `db:"image_url"`
	IsRead        bool       `db:"is_read"`
	ReadAt        *time.Time `db:"read_at"`
	IsDeleted     bool       `db:"is_deleted"`
	CreatedAt     time.Time  `db:"created_at"`
}

func (r messageRow) toEntity() *entity.Message {
	return &entity.Message{
		ID:            r.ID,
		Seq:           r.Seq,
		TransactionID: r.TransactionID,
		SenderID:      r.SenderID,
		SenderName:    r.SenderName,
		Type:          valueobject.MessageType(r.Type),
		Content:       r.Content,
		ImageURL:      r.ImageURL,
		IsRead:        r.IsRead,
		ReadAt:        r.ReadAt,
		IsDeleted:     r.IsDeleted,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

type MessageRepositoryAdapter struct {
	db *sqlx.DB
}

var _ repository.MessageRepository = (*MessageRepositoryAdapter)(nil)

func NewMessageRepositoryAdapter(db *sqlx.DB) *MessageRepositoryAdapter {
	return &MessageRepositoryAdapter{db: db}
}

func (r *MessageRepositoryAdapter) Create(ctx context.Context, m *entity.Message) error {
	query := `
		INSERT INTO messages (id, transaction_id, sender_id, sender_name, type, content, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq
	`
	err := r.db.QueryRowContext(ctx, query,
		m.ID, m.TransactionID, m.SenderID, m.SenderName, string(m.Type), m.Content, m.ImageURL, m.CreatedAt,
	).Scan(&m.Seq)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить сообщение")
	}
	return nil
}

func (r *MessageRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	row, err := common.GetOne[messageRow](ctx, r.db, apperror.ErrMessageNotFound, query, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить сообщение")
	}
	return row.toEntity(), nil
}

// ListPage сравнивает кортеж (created_at, seq), поэтому сообщения с одинаковым временем не теряются между страницами.
func (r *MessageRepositoryAdapter) ListPage(ctx context.Context, transactionID uuid.UUID, before *entity.MessageCursor, limit int) ([]*entity.Message, error) {
	var (
		rows []messageRow
		err  error
	)
	if before == nil {
		query := `SELECT ` + messageColumns + ` FROM messages
			WHERE transaction_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2`
		err = r.db.SelectContext(ctx, &rows, query, transactionID, limit)
	} else {
		query := `SELECT ` + messageColumns + ` FROM messages
			WHERE transaction_id = $1 AND (created_at, seq) < ($2, $3)
			ORDER BY created_at DESC, seq DESC
			LIMIT $4`
		err = r.db.SelectContext(ctx, &rows, query, transactionID, before.CreatedAt, before.Seq, limit)
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить сообщения")
	}

	out := make([]*entity.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *MessageRepositoryAdapter) MarkRead(ctx context.Context, transactionID, readerID uuid.UUID) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = $3
		WHERE transaction_id = $1 AND sender_id <> $2 AND is_read = FALSE
	`, transactionID, readerID, time.Now().UTC())
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отметить сообщения прочитанными")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отметить сообщения прочитанными")
	}
	return int(n), nil
}

func (r *MessageRepositoryAdapter) SoftDelete(ctx context.Context, m *entity.Message) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET content = $2, image_url = NULL, is_deleted = TRUE WHERE id = $1
	`, m.ID, m.Content)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить сообщение")
	}
	return common.ExpectAffected(res, apperror.ErrMessageNotFound)
}

func (r *MessageRepositoryAdapter) CountUnread(ctx context.Context, transactionID, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM messages
		WHERE transaction_id = $1 AND sender_id <> $2 AND is_read = FALSE AND is_deleted = FALSE
	`, transactionID, userID)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать непрочитанные")
	}
	return n, nil
}

func (r *MessageRepositoryAdapter) CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM messages m
		JOIN transactions t ON t.id = m.transaction_id
		WHERE (t.seller_id = $1 OR t.buyer_id = $1)
		  AND m.sender_id <> $1 AND m.is_read = FALSE AND m.is_deleted = FALSE
	`, userID)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать непрочитанные")
	}
	return n, nil
}
