package handler

import (
	"net/http"

	"pharmacy/internal/middleware"
	"pharmacy/internal/model"
	"pharmacy/internal/service"
	"pharmacy/pkg/response"

	"github.com/gin-gonic/gin"
)

type MedicineHandler struct {
	catalogService service.CatalogService
	saleService    service.SaleService
}

func NewMedicineHandler(catalogService service.CatalogService, saleService service.SaleService) *MedicineHandler {
	return &MedicineHandler{catalogService: catalogService, saleService: saleService}
}

func (h *MedicineHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/medicines", h.ListMedicines)
		api.POST("/medicines", middleware.RequireRole(model.RoleAdmin, model.RolePharmacist), h.CreateMedicine)
		api.GET("/medicines/:id", h.GetMedicine)
		api.POST("/medicines/:id/sales", middleware.RequireRole(model.RoleAdmin, model.RolePharmacist, model.RoleCashier), h.Sell)
		api.GET("/sales/:id", h.GetSale)
	}
}

// ListMedicines handles the catalog listing
// @Summary      List medicines
// @Description  Lists medicines with stock totals, optionally filtered by name, category, expiry and stock status
// @Tags         medicines
// @Security     BearerAuth
// @Produce      json
// @Param        name        query     string  false  "Case-insensitive name fragment"
// @Param        category    query     string  false  "Case-insensitive category fragment"
// @Param        expiryDate  query     string  false  "Only medicines expiring on or before this date (YYYY-MM-DD)"
// @Param        filterMode  query     string  false  "all, lowStock or expiringSoon"
// @Success      200  {object}  response.Response{data=[]service.MedicineSummary}
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/medicines [get]
func (h *MedicineHandler) ListMedicines(c *gin.Context) {
	expiry, err := queryDate(c, "expiryDate", true)
	if err != nil {
		writeError(c, err)
		return
	}

	medicines, err := h.catalogService.ListMedicines(c.Request.Context(), service.MedicineFilter{
		Name:         c.Query("name"),
		Category:     c.Query("category"),
		ExpiryBefore: expiry,
		StatusMode:   c.Query("filterMode"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, medicines))
}

// CreateMedicine registers a medicine with an optional opening batch
// @Summary      Create medicine
// @Tags         medicines
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateMedicineRequest  true  "Create Medicine Payload"
// @Success      201      {object}  response.Response{data=service.MedicineDetail}
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/medicines [post]
func (h *MedicineHandler) CreateMedicine(c *gin.Context) {
	a, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	detail, err := h.catalogService.CreateMedicine(c.Request.Context(), a, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, detail))
}

// GetMedicine returns one medicine with its batches
// @Summary      Get medicine
// @Tags         medicines
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Medicine ID"
// @Success      200  {object}  response.Response{data=service.MedicineDetail}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/medicines/{id} [get]
func (h *MedicineHandler) GetMedicine(c *gin.Context) {
	detail, err := h.catalogService.GetMedicine(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// Sell records a sale from one batch of the medicine
// @Summary      Sell medicine
// @Description  Decrements the chosen batch and records the sale, its line item and the prescription atomically
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Medicine ID"
// @Param        payload  body      service.SellRequest  true  "Sale Payload"
// @Success      201      {object}  response.Response{data=service.SaleResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response "Insufficient stock or batch/medicine mismatch"
// @Failure      503      {object}  response.Response
// @Router       /api/medicines/{id}/sales [post]
func (h *MedicineHandler) Sell(c *gin.Context) {
	a, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.SellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.saleService.Sell(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// GetSale returns a recorded sale with its line items
// @Summary      Get sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response{data=model.Sale}
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *MedicineHandler) GetSale(c *gin.Context) {
	sale, err := h.saleService.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}
