package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type MessageRepository struct {
	s *Store
}

var _ repository.MessageRepository = (*MessageRepository)(nil)

func (r *MessageRepository) Create(ctx context.Context, m *entity.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seq++
	m.Seq = r.s.seq
	stored := cloneMessage(m)
	r.s.messages[m.TransactionID] = append(r.s.messages[m.TransactionID], stored)
	r.s.messageIndex[m.ID] = stored
	return nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.messageIndex[id]
	if !ok {
		return nil, apperror.ErrMessageNotFound
	}
	return cloneMessage(m), nil
}

func (r *MessageRepository) ListPage(ctx context.Context, transactionID uuid.UUID, before *entity.MessageCursor, limit int) ([]*entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*entity.Message, 0, len(r.s.messages[transactionID]))
	for _, m := range r.s.messages[transactionID] {
		if before == nil || m.Cursor().Before(*before) {
			all = append(all, cloneMessage(m))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[j].Cursor().Before(all[i].Cursor()) })
	return page(all, limit, 0), nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, transactionID, readerID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	n := 0
	for _, m := range r.s.messages[transactionID] {
		if m.SenderID == readerID || m.IsRead {
			continue
		}
		m.IsRead = true
		readAt := now
		m.ReadAt = &readAt
		n++
	}
	return n, nil
}

func (r *MessageRepository) SoftDelete(ctx context.Context, m *entity.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.messageIndex[m.ID]
	if !ok {
		return apperror.ErrMessageNotFound
	}
	stored.Content = m.Content
	stored.ImageURL = nil
	stored.IsDeleted = true
	return nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, transactionID, userID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return countUnread(r.s.messages[transactionID], userID), nil
}

func (r *MessageRepository) CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := 0
	for id, t := range r.s.transactions {
		if t.IsParticipant(userID) {
			total += countUnread(r.s.messages[id], userID)
		}
	}
	return total, nil
}

func countUnread(list []*entity.Message, userID uuid.UUID) int {
	n := 0
	for _, m := range list {
		if m.SenderID != userID && !m.IsRead && !m.IsDeleted {
			n++
		}
	}
	return n
}
