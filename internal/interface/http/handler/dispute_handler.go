package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/usecase/dispute"
)

// DisputeHandler споры со стороны участников сделки.
type DisputeHandler struct {
	openUC *dispute.OpenDisputeUseCase
	getUC  *dispute.GetDisputeUseCase
	listUC *dispute.ListDisputesUseCase
}

func NewDisputeHandler(deps *dispute.Deps) *DisputeHandler {
	return &DisputeHandler{
		openUC: dispute.NewOpenDisputeUseCase(deps),
		getUC:  dispute.NewGetDisputeUseCase(deps),
		listUC: dispute.NewListDisputesUseCase(deps),
	}
}

// Open POST /api/transactions/:id/dispute
func (h *DisputeHandler) Open(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	d, t, err := h.openUC.Execute(c.Request.Context(), dispute.OpenDisputeInput{
		TransactionID: id,
		ActorID:       identity.UserID,
		Reason:        req.Reason,
		Description:   req.Description,
		Evidence:      req.Evidence,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DisputeWithTransactionResponse{
		Dispute:     dto.ToDisputeResponse(d),
		Transaction: dto.ToTransactionResponse(t, identity.UserID, isAdmin(identity)),
	})
}

func (h *DisputeHandler) ListByTransaction(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	list, err := h.listUC.ByTransaction(c.Request.Context(), id, identity.UserID, isAdmin(identity))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponses(list))
}

func (h *DisputeHandler) Get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID спора")
	if !ok {
		return
	}

	d, err := h.getUC.Execute(c.Request.Context(), id, identity.UserID, isAdmin(identity))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponse(d))
}
