package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/usecase/dispute"
	"github.com/ignatzorin/escrow-backend/internal/usecase/transaction"
)

// AdminHandler операции администратора: проверка оплаты и разбор споров.
// Роль проверяется middleware.RequireRole на группе маршрутов.
type AdminHandler struct {
	listTransactionsUC *transaction.ListTransactionsUseCase
	verifyPaymentUC    *transaction.VerifyPaymentUseCase
	listDisputesUC     *dispute.ListDisputesUseCase
	startReviewUC      *dispute.StartReviewUseCase
	resolveUC          *dispute.ResolveDisputeUseCase
}

func NewAdminHandler(txDeps *transaction.Deps, disputeDeps *dispute.Deps) *AdminHandler {
	return &AdminHandler{
		listTransactionsUC: transaction.NewListTransactionsUseCase(txDeps),
		verifyPaymentUC:    transaction.NewVerifyPaymentUseCase(txDeps),
		listDisputesUC:     dispute.NewListDisputesUseCase(disputeDeps),
		startReviewUC:      dispute.NewStartReviewUseCase(disputeDeps),
		resolveUC:          dispute.NewResolveDisputeUseCase(disputeDeps),
	}
}

// ListTransactions GET /api/admin/transactions?status=PAYMENT_VERIFYING
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	offset, ok := offsetQuery(c)
	if !ok {
		return
	}

	filter := repository.TransactionFilter{
		Status: c.Query("status"),
		Limit:  clampLimit(parseIntQuery(c, "limit", 20)),
		Offset: offset,
	}

	list, total, err := h.listTransactionsUC.All(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToTransactionResponses(list, identity.UserID, true), total, filter.Limit, filter.Offset)
}

func (h *AdminHandler) VerifyPayment(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	t, err := h.verifyPaymentUC.Execute(c.Request.Context(), transaction.VerifyPaymentInput{
		TransactionID: id,
		AdminID:       identity.UserID,
		Approve:       *req.Approve,
		Note:          req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTransactionResponse(t, identity.UserID, true))
}

func (h *AdminHandler) ListDisputes(c *gin.Context) {
	offset, ok := offsetQuery(c)
	if !ok {
		return
	}

	filter := repository.DisputeFilter{
		Status: c.Query("status"),
		Limit:  clampLimit(parseIntQuery(c, "limit", 20)),
		Offset: offset,
	}

	list, total, err := h.listDisputesUC.All(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToDisputeResponses(list), total, filter.Limit, filter.Offset)
}

// StartReview переводит спор в UNDER_REVIEW.
func (h *AdminHandler) StartReview(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID спора")
	if !ok {
		return
	}

	d, err := h.startReviewUC.Execute(c.Request.Context(), id, identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponse(d))
}

func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID спора")
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	d, t, err := h.resolveUC.Execute(c.Request.Context(), dispute.ResolveDisputeInput{
		DisputeID:  id,
		AdminID:    identity.UserID,
		Resolution: req.Resolution,
		Note:       req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.DisputeWithTransactionResponse{
		Dispute:     dto.ToDisputeResponse(d),
		Transaction: dto.ToTransactionResponse(t, identity.UserID, true),
	})
}
