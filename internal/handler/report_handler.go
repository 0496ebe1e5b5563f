package handler

import (
	"pharmacy/internal/middleware"
	"pharmacy/internal/model"
	"pharmacy/internal/service"
	"pharmacy/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	transactionService  service.TransactionService
	prescriptionService service.PrescriptionService
}

func NewReportHandler(transactionService service.TransactionService, prescriptionService service.PrescriptionService) *ReportHandler {
	return &ReportHandler{transactionService: transactionService, prescriptionService: prescriptionService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/transactions", middleware.RequireRole(model.RoleAdmin, model.RolePharmacist, model.RoleAccountant), h.ListTransactions)
		api.GET("/prescriptions", middleware.RequireRole(model.RoleAdmin, model.RolePharmacist), h.ListPrescriptions)
	}
}

// ListTransactions returns sales newest first
// @Summary      Transaction history
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        search       query     string  false  "Medicine name fragment"
// @Param        batchNumber  query     int     false  "Exact batch number"
// @Param        startDate    query     string  false  "Inclusive lower bound (YYYY-MM-DD or RFC3339)"
// @Param        endDate      query     string  false  "Inclusive upper bound (YYYY-MM-DD or RFC3339)"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=[]model.Sale}
// @Failure      400          {object}  response.Response
// @Router       /api/transactions [get]
func (h *ReportHandler) ListTransactions(c *gin.Context) {
	batchNumber, err := queryInt64(c, "batchNumber")
	if err != nil {
		writeError(c, err)
		return
	}
	start, err := queryDate(c, "startDate", false)
	if err != nil {
		writeError(c, err)
		return
	}
	end, err := queryDate(c, "endDate", true)
	if err != nil {
		writeError(c, err)
		return
	}

	p := pagination.Parse(c)
	sales, total, err := h.transactionService.List(c.Request.Context(), service.TransactionFilter{
		Search:      c.Query("search"),
		BatchNumber: batchNumber,
		StartDate:   start,
		EndDate:     end,
		Page:        p.Page,
		Limit:       p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writePage(c, sales, p, total)
}

// ListPrescriptions returns dispensing records with their line items
// @Summary      Prescriptions
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=[]model.Prescription}
// @Router       /api/prescriptions [get]
func (h *ReportHandler) ListPrescriptions(c *gin.Context) {
	p := pagination.Parse(c)
	prescriptions, total, err := h.prescriptionService.List(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	writePage(c, prescriptions, p, total)
}
