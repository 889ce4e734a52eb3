package handlers

import (
	"net/http"

	"sales-ops-api/internal/database"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"
	"sales-ops-api/internal/scope"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// salesQuery applies scope and common filters (representative_id,
// start_date, end_date) to a sales or returns listing.
func salesQuery(c *gin.Context, base *gorm.DB) (*gorm.DB, bool) {
	user := middleware.CurrentUser(c)
	db := database.GetDB()

	sc, err := scope.Resolve(db, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return nil, false
	}
	query := sc.Filter(base, "representative_id")

	if raw := c.Query("representative_id"); raw != "" {
		id, ok := parseUintParam(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "representative_id is invalid"})
			return nil, false
		}
		if !sc.Contains(id) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "representative is outside your scope"})
			return nil, false
		}
		query = query.Where("representative_id = ?", id)
	}
	if raw := c.Query("start_date"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "start_date is invalid"})
			return nil, false
		}
		query = query.Where("date >= ?", d)
	}
	if raw := c.Query("end_date"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "end_date is invalid"})
			return nil, false
		}
		query = query.Where("date <= ?", d)
	}
	return query, true
}

// ListSales handles GET /api/sales
func ListSales(c *gin.Context) {
	query, ok := salesQuery(c, database.GetDB().Model(&models.Sale{}))
	if !ok {
		return
	}
	var sales []models.Sale
	if err := query.Order("date desc, id desc").Find(&sales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch sales"})
		return
	}
	var total float64
	for i := range sales {
		total += sales[i].NetPrice
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sales": sales, "net_total": total})
}

// SaleRequest is the sales line payload. Totals are computed server
// side from quantity and unit price; net_price defaults to the total
// unless a discounted value is supplied.
type SaleRequest struct {
	RepresentativeID uint     `json:"representative_id"`
	Date             string   `json:"date" binding:"required"`
	ProductGroup     string   `json:"product_group" binding:"required"`
	Brand            string   `json:"brand" binding:"required"`
	ProductName      string   `json:"product_name" binding:"required"`
	Quantity         int      `json:"quantity" binding:"required"`
	UnitPrice        float64  `json:"unit_price" binding:"required"`
	NetPrice         *float64 `json:"net_price"`
	CustomerName     string   `json:"customer_name"`
	CustomerCode     string   `json:"customer_code"`
	ReturnReason     string   `json:"return_reason"`
}

func (r *SaleRequest) resolve(c *gin.Context) (uint, float64, float64, bool) {
	user := middleware.CurrentUser(c)
	repID := r.RepresentativeID
	if repID == 0 {
		repID = user.ID
	}
	if repID != user.ID {
		sc, err := scope.Resolve(database.GetDB(), user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
			return 0, 0, 0, false
		}
		if !sc.Contains(repID) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "representative is outside your scope"})
			return 0, 0, 0, false
		}
	}
	if r.Quantity <= 0 || r.UnitPrice < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "quantity and unit_price must be positive"})
		return 0, 0, 0, false
	}
	total := float64(r.Quantity) * r.UnitPrice
	net := total
	if r.NetPrice != nil {
		if *r.NetPrice < 0 || *r.NetPrice > total {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "net_price is invalid"})
			return 0, 0, 0, false
		}
		net = *r.NetPrice
	}
	return repID, total, net, true
}

// CreateSale handles POST /api/sales
func CreateSale(c *gin.Context) {
	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "date is invalid"})
		return
	}
	repID, total, net, ok := req.resolve(c)
	if !ok {
		return
	}

	sale := models.Sale{
		RepresentativeID: repID,
		Date:             date,
		ProductGroup:     req.ProductGroup,
		Brand:            req.Brand,
		ProductName:      req.ProductName,
		Quantity:         req.Quantity,
		UnitPrice:        req.UnitPrice,
		TotalPrice:       total,
		NetPrice:         net,
		CustomerName:     req.CustomerName,
		CustomerCode:     req.CustomerCode,
	}
	if err := database.GetDB().Create(&sale).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create sale"})
		return
	}
	logActivity(c, "sale_create", "sale recorded: "+sale.ProductName)
	c.JSON(http.StatusCreated, gin.H{"success": true, "sale_id": sale.ID})
}

// ListReturns handles GET /api/returns
func ListReturns(c *gin.Context) {
	query, ok := salesQuery(c, database.GetDB().Model(&models.Return{}))
	if !ok {
		return
	}
	var returns []models.Return
	if err := query.Order("date desc, id desc").Find(&returns).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch returns"})
		return
	}
	var total float64
	for i := range returns {
		total += returns[i].NetPrice
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "returns": returns, "net_total": total})
}

// CreateReturn handles POST /api/returns
func CreateReturn(c *gin.Context) {
	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "date is invalid"})
		return
	}
	repID, total, net, ok := req.resolve(c)
	if !ok {
		return
	}

	ret := models.Return{
		RepresentativeID: repID,
		Date:             date,
		ProductGroup:     req.ProductGroup,
		Brand:            req.Brand,
		ProductName:      req.ProductName,
		Quantity:         req.Quantity,
		UnitPrice:        req.UnitPrice,
		TotalPrice:       total,
		NetPrice:         net,
		ReturnReason:     req.ReturnReason,
		CustomerName:     req.CustomerName,
		CustomerCode:     req.CustomerCode,
	}
	if err := database.GetDB().Create(&ret).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create return"})
		return
	}
	logActivity(c, "return_create", "return recorded: "+ret.ProductName)
	c.JSON(http.StatusCreated, gin.H{"success": true, "return_id": ret.ID})
}
