package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/usecase/chat"
)

// ChatPublisher рассылает в комнату сделки то, что изменилось через REST.
type ChatPublisher interface {
	PublishMessage(msg *entity.Message)
	PublishRead(transactionID, readerID uuid.UUID, count int)
	PublishDeleted(msg *entity.Message)
	IsOnline(userID uuid.UUID) bool
}

type ChatHandler struct {
	sendUC     *chat.SendMessageUseCase
	listUC     *chat.ListMessagesUseCase
	markReadUC *chat.MarkReadUseCase
	deleteUC   *chat.DeleteMessageUseCase
	unreadUC   *chat.UnreadUseCase
	publisher  ChatPublisher
}

func NewChatHandler(deps *chat.Deps, publisher ChatPublisher) *ChatHandler {
	return &ChatHandler{
		sendUC:     chat.NewSendMessageUseCase(deps),
		listUC:     chat.NewListMessagesUseCase(deps),
		markReadUC: chat.NewMarkReadUseCase(deps),
		deleteUC:   chat.NewDeleteMessageUseCase(deps),
		unreadUC:   chat.NewUnreadUseCase(deps),
		publisher:  publisher,
	}
}

// ListMessages GET /api/transactions/:id/messages?cursor=...&limit=50
func (h *ChatHandler) ListMessages(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	page, err := h.listUC.Execute(c.Request.Context(), id, identity.UserID, c.Query("cursor"), parseIntQuery(c, "limit", chat.DefaultPageSize))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.MessageListResponse{
		Messages:   chat.NewMessageViews(page.Messages),
		NextCursor: page.NextCursor,
	})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	msg, err := h.sendUC.Execute(c.Request.Context(), chat.SendMessageInput{
		TransactionID: id,
		SenderID:      identity.UserID,
		SenderName:    identity.Name,
		Type:          req.Type,
		Content:       req.Content,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.publisher.PublishMessage(msg)
	response.Created(c, chat.NewMessageView(msg))
}

// MarkRead отмечает прочитанными сообщения собеседника.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	count, err := h.markReadUC.Execute(c.Request.Context(), id, identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.publisher.PublishRead(id, identity.UserID, count)
	response.Success(c, dto.MarkReadResponse{Count: count})
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сообщения")
	if !ok {
		return
	}

	msg, err := h.deleteUC.Execute(c.Request.Context(), id, identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.publisher.PublishDeleted(msg)
	response.Success(c, chat.NewMessageView(msg))
}

func (h *ChatHandler) UnreadForTransaction(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	count, err := h.unreadUC.ForTransaction(c.Request.Context(), id, identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.UnreadResponse{Count: count})
}

func (h *ChatHandler) UnreadTotal(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	count, err := h.unreadUC.Total(c.Request.Context(), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.UnreadResponse{Count: count})
}

// Presence GET /api/users/:id/presence
func (h *ChatHandler) Presence(c *gin.Context) {
	id, ok := uuidParam(c, "id", "некорректный ID пользователя")
	if !ok {
		return
	}

	response.Success(c, dto.PresenceResponse{
		UserID:   id.String(),
		IsOnline: h.publisher.IsOnline(id),
	})
}
