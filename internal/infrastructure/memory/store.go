// Package memory хранилище в памяти процесса с той же семантикой compare-and-swap, что и PostgreSQL.
// Используется при STORAGE_DRIVER=memory и в тестах.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
)

// Store общий для всех репозиториев, чтобы операции над несколькими сущностями были атомарными.
type Store struct {
	mu sync.RWMutex

	transactions map[uuid.UUID]*entity.Transaction
	inviteIndex  map[string]uuid.UUID
	slips        map[uuid.UUID][]*entity.PaymentSlip
	disputes     map[uuid.UUID]*entity.Dispute
	messages     map[uuid.UUID][]*entity.Message
	messageIndex map[uuid.UUID]*entity.Message
	seq          int64
}

func NewStore() *Store {
	return &Store{
		transactions: make(map[uuid.UUID]*entity.Transaction),
		inviteIndex:  make(map[string]uuid.UUID),
		slips:        make(map[uuid.UUID][]*entity.PaymentSlip),
		disputes:     make(map[uuid.UUID]*entity.Dispute),
		messages:     make(map[uuid.UUID][]*entity.Message),
		messageIndex: make(map[uuid.UUID]*entity.Message),
	}
}

func (s *Store) Transactions() *TransactionRepository {
	return &TransactionRepository{s: s}
}

func (s *Store) Slips() *SlipRepository {
	return &SlipRepository{s: s}
}

func (s *Store) Disputes() *DisputeRepository {
	return &DisputeRepository{s: s}
}

func (s *Store) Messages() *MessageRepository {
	return &MessageRepository{s: s}
}

func cloneTransaction(t *entity.Transaction) *entity.Transaction {
	c := *t
	return &c
}

func cloneSlip(sl *entity.PaymentSlip) *entity.PaymentSlip {
	c := *sl
	return &c
}

func cloneDispute(d *entity.Dispute) *entity.Dispute {
	c := *d
	c.Evidence = append([]string(nil), d.Evidence...)
	return &c
}

func cloneMessage(m *entity.Message) *entity.Message {
	c := *m
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
