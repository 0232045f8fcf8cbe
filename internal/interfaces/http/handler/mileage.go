package handler

import (
	mileageapp "github.com/commerce/backend/internal/application/mileage"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// MileageHandler handles mileage ledger API endpoints
type MileageHandler struct {
	BaseHandler
	ledgerService *mileageapp.LedgerService
}

// NewMileageHandler creates a new MileageHandler
func NewMileageHandler(ledgerService *mileageapp.LedgerService) *MileageHandler {
	return &MileageHandler{
		ledgerService: ledgerService,
	}
}

// RegisterRoutes registers mileage routes on the API group
func (h *MileageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	mileage := rg.Group("/mileage")
	{
		mileage.POST("/accrue", h.Accrue)

		ledgers := mileage.Group("/ledgers")
		{
			ledgers.GET("", h.Query)
			ledgers.GET("/:id", h.GetByID)
			ledgers.DELETE("/:id", h.Delete)
			ledgers.POST("/:id/spend", h.Spend)
			ledgers.POST("/:id/hold", h.Hold)
			ledgers.POST("/:id/release", h.Release)
			ledgers.GET("/:id/transactions", h.Transactions)
		}
	}
}

// Accrue godoc
// @Summary      Credit mileage
// @Description  Credit mileage to a customer's ledger, creating the ledger on first accrual
// @Tags         mileage
// @Accept       json
// @Produce      json
// @Param        request body mileage.AccrueRequest true "Accrual request"
// @Success      200 {object} dto.Response{data=mileage.LedgerResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /mileage/accrue [post]
func (h *MileageHandler) Accrue(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid customer identity")
		return
	}

	var req mileageapp.AccrueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	ledger, err := h.ledgerService.Accrue(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, ledger)
}

// Spend godoc
// @Summary      Debit mileage
// @Description  Spend usable mileage from a ledger. Overspend leaves the ledger untouched.
// @Tags         mileage
// @Accept       json
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Param        request body mileage.SpendRequest true "Spend request"
// @Success      200 {object} dto.Response{data=mileage.LedgerResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /mileage/ledgers/{id}/spend [post]
func (h *MileageHandler) Spend(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid customer identity")
		return
	}

	ledgerID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}

	var req mileageapp.SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	ledger, err := h.ledgerService.Spend(c.Request.Context(), ledgerID, actorID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, ledger)
}

// Hold godoc
// @Summary      Reserve mileage
// @Description  Move usable mileage to on-hold pending an uncertain operation
// @Tags         mileage
// @Accept       json
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Param        request body mileage.HoldRequest true "Hold request"
// @Success      200 {object} dto.Response{data=mileage.LedgerResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /mileage/ledgers/{id}/hold [post]
func (h *MileageHandler) Hold(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid customer identity")
		return
	}

	ledgerID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}

	var req mileageapp.HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	ledger, err := h.ledgerService.Hold(c.Request.Context(), ledgerID, actorID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, ledger)
}

// Release godoc
// @Summary      Release held mileage
// @Description  Return on-hold mileage to usable
// @Tags         mileage
// @Accept       json
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Param        request body mileage.ReleaseRequest true "Release request"
// @Success      200 {object} dto.Response{data=mileage.LedgerResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /mileage/ledgers/{id}/release [post]
func (h *MileageHandler) Release(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid customer identity")
		return
	}

	ledgerID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}

	var req mileageapp.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	ledger, err := h.ledgerService.Release(c.Request.Context(), ledgerID, actorID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, ledger)
}

// GetByID godoc
// @Summary      Get ledger by ID
// @Description  Retrieve a ledger. Deleted ledgers answer 410 Gone.
// @Tags         mileage
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Success      200 {object} dto.Response{data=mileage.LedgerResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /mileage/ledgers/{id} [get]
func (h *MileageHandler) GetByID(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid customer identity")
		return
	}

	ledgerID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}

	ledger, err := h.ledgerService.GetLedger(c.Request.Context(), ledgerID, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, ledger)
}

// Query godoc
// @Summary      Query ledgers
// @Description  List ledgers filtered by customer, seller, status, or expiry horizon bounds
// @Tags         mileage
// @Produce      json
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        seller_id query string false "Seller ID" format(uuid)
// @Param        status query string false "Ledger status" Enums(ACTIVE, EXPIRED)
// @Param        expired_before query string false "Horizon strictly before (RFC3339)"
// @Param        expired_after query string false "Horizon strictly after (RFC3339)"
// @Param        include_deleted query bool false "Include soft-deleted ledgers"
// @Success      200 {object} dto.Response{data=[]mileage.LedgerResponse}
// @Security     BearerAuth
// @Router       /mileage/ledgers [get]
func (h *MileageHandler) Query(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid customer identity")
		return
	}

	var req mileageapp.QueryLedgersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.ledgerService.QueryLedgers(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, req.Page, req.PageSize)
}

// Delete godoc
// @Summary      Delete a ledger
// @Description  Soft-delete a ledger. Repeating the call answers 409 ALREADY_DELETED.
// @Tags         mileage
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Success      204
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /mileage/ledgers/{id} [delete]
func (h *MileageHandler) Delete(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid customer identity")
		return
	}

	ledgerID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}

	if err := h.ledgerService.DeleteLedger(c.Request.Context(), ledgerID, actorID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Transactions godoc
// @Summary      List ledger transactions
// @Description  List a ledger's transaction trail, newest first. Readable after deletion.
// @Tags         mileage
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]mileage.TransactionResponse}
// @Security     BearerAuth
// @Router       /mileage/ledgers/{id}/transactions [get]
func (h *MileageHandler) Transactions(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid customer identity")
		return
	}

	ledgerID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}

	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BindingError(c, err)
		return
	}

	filter := shared.DefaultFilter()
	filter.Page = listReq.Page
	filter.PageSize = listReq.PageSize

	result, err := h.ledgerService.GetTransactions(c.Request.Context(), ledgerID, actorID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}
