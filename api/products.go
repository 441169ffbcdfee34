package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pricemonitor/models"
)

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.products.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

type addProductInput struct {
	URL string `json:"url" binding:"required"`
}

func (s *Server) addProduct(c *gin.Context) {
	var input addProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.products.Add(c.Request.Context(), currentUserID(c), input.URL)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) getProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.products.Get(c.Request.Context(), currentUserID(c), productID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.products.Delete(c.Request.Context(), currentUserID(c), productID); err != nil {
		serviceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) refreshProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.products.Refresh(c.Request.Context(), currentUserID(c), productID); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Atualização agendada"})
}

func (s *Server) refreshAllProducts(c *gin.Context) {
	queued, err := s.products.RefreshAll(c.Request.Context(), currentUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}

func (s *Server) productHistory(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}

	var since *time.Time
	if days, err := strconv.Atoi(c.Query("days")); err == nil && days > 0 {
		t := time.Now().AddDate(0, 0, -days)
		since = &t
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	history, err := s.products.History(c.Request.Context(), currentUserID(c), productID, since, limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	if history == nil {
		history = []models.PriceSnapshot{}
	}
	c.JSON(http.StatusOK, history)
}

type prefsInput struct {
	NotifyOnPriceDrop     *bool `json:"notifyOnPriceDrop"`
	NotifyOnPriceIncrease *bool `json:"notifyOnPriceIncrease"`
}

func (s *Server) updateProductPrefs(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}
	var input prefsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.products.UpdatePrefs(c.Request.Context(), currentUserID(c), productID,
		input.NotifyOnPriceDrop, input.NotifyOnPriceIncrease)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) cleanupProductHistory(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}
	removed, err := s.cleanup.DedupeProduct(c.Request.Context(), currentUserID(c), productID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) cleanupAllHistory(c *gin.Context) {
	removed, err := s.cleanup.DedupeUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) analyticsReport(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	report, err := s.analytics.Report(c.Request.Context(), currentUserID(c), days)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return uuid.Nil, false
	}
	return id, true
}
