package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/usecase/transaction"
)

type TransactionHandler struct {
	createUC  *transaction.CreateTransactionUseCase
	quoteUC   *transaction.QuoteFeeUseCase
	previewUC *transaction.PreviewInviteUseCase
	joinUC    *transaction.JoinTransactionUseCase
	getUC     *transaction.GetTransactionUseCase
	listUC    *transaction.ListTransactionsUseCase
	submitUC  *transaction.SubmitSlipUseCase
	slipsUC   *transaction.ListSlipsUseCase
	deliverUC *transaction.ConfirmDeliveryUseCase
	acceptUC  *transaction.AcceptDeliveryUseCase
	cancelUC  *transaction.CancelTransactionUseCase
}

func NewTransactionHandler(deps *transaction.Deps) *TransactionHandler {
	return &TransactionHandler{
		createUC:  transaction.NewCreateTransactionUseCase(deps),
		quoteUC:   transaction.NewQuoteFeeUseCase(deps.Fees),
		previewUC: transaction.NewPreviewInviteUseCase(deps),
		joinUC:    transaction.NewJoinTransactionUseCase(deps),
		getUC:     transaction.NewGetTransactionUseCase(deps),
		listUC:    transaction.NewListTransactionsUseCase(deps),
		submitUC:  transaction.NewSubmitSlipUseCase(deps),
		slipsUC:   transaction.NewListSlipsUseCase(deps),
		deliverUC: transaction.NewConfirmDeliveryUseCase(deps),
		acceptUC:  transaction.NewAcceptDeliveryUseCase(deps),
		cancelUC:  transaction.NewCancelTransactionUseCase(deps),
	}
}

// QuoteFee GET /api/fees/quote?amount=1000&fee_payer=BUYER
func (h *TransactionHandler) QuoteFee(c *gin.Context) {
	amount, ok := parseInt64Query(c, "amount")
	if !ok {
		response.ValidationFailed(c, "amount", "сумма должна быть целым числом")
		return
	}

	breakdown, err := h.quoteUC.Execute(amount, c.DefaultQuery("fee_payer", "BUYER"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, breakdown)
}

func (h *TransactionHandler) Create(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	t, err := h.createUC.Execute(c.Request.Context(), transaction.CreateTransactionInput{
		SellerID:    identity.UserID,
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		FeePayer:    req.FeePayer,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToTransactionResponse(t, identity.UserID, isAdmin(identity)))
}

// ListMine сделки, где пользователь продавец или покупатель.
func (h *TransactionHandler) ListMine(c *gin.Context) {
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

	list, total, err := h.listUC.ForUser(c.Request.Context(), identity.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToTransactionResponses(list, identity.UserID, isAdmin(identity)), total, filter.Limit, filter.Offset)
}

func (h *TransactionHandler) Get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	t, err := h.getUC.Execute(c.Request.Context(), id, identity.UserID, isAdmin(identity))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTransactionResponse(t, identity.UserID, isAdmin(identity)))
}

// PreviewInvite GET /api/transactions/invite/:inviteCode
func (h *TransactionHandler) PreviewInvite(c *gin.Context) {
	t, err := h.previewUC.Execute(c.Request.Context(), c.Param("inviteCode"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToInvitePreviewResponse(t))
}

// Join POST /api/transactions/join/:inviteCode
func (h *TransactionHandler) Join(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	t, err := h.joinUC.Execute(c.Request.Context(), c.Param("inviteCode"), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTransactionResponse(t, identity.UserID, isAdmin(identity)))
}

func (h *TransactionHandler) SubmitSlip(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	var req dto.SubmitSlipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	t, slip, err := h.submitUC.Execute(c.Request.Context(), transaction.SubmitSlipInput{
		TransactionID: id,
		BuyerID:       identity.UserID,
		ClaimedAmount: req.ClaimedAmount,
		SlipURL:       req.SlipURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.SubmitSlipResponse{
		Transaction: dto.ToTransactionResponse(t, identity.UserID, isAdmin(identity)),
		Slip:        dto.ToSlipResponse(slip),
	})
}

func (h *TransactionHandler) ListSlips(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	slips, err := h.slipsUC.Execute(c.Request.Context(), id, identity.UserID, isAdmin(identity))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToSlipResponses(slips))
}

func (h *TransactionHandler) ConfirmDelivery(c *gin.Context) {
	h.transition(c, h.deliverUC.Execute)
}

func (h *TransactionHandler) AcceptDelivery(c *gin.Context) {
	h.transition(c, h.acceptUC.Execute)
}

func (h *TransactionHandler) Cancel(c *gin.Context) {
	h.transition(c, h.cancelUC.Execute)
}

// transition общий обработчик переходов без тела запроса.
func (h *TransactionHandler) transition(c *gin.Context, execute func(ctx context.Context, id, actorID uuid.UUID) (*entity.Transaction, error)) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "некорректный ID сделки")
	if !ok {
		return
	}

	t, err := execute(c.Request.Context(), id, identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTransactionResponse(t, identity.UserID, isAdmin(identity)))
}
