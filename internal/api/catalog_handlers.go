package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/rentledger/internal/models"
)

func (h *Handler) ListBuildings(c *gin.Context) {
	buildings, err := h.svc.ListBuildings(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "buildings": buildings})
}

func (h *Handler) CreateBuilding(c *gin.Context) {
	var req models.CreateBuildingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	b, err := h.svc.CreateBuilding(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "building": b})
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	buildingID, ok := pathID(c)
	if !ok {
		return
	}
	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	settings, err := h.svc.UpdateSettings(c.Request.Context(), buildingID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "settings": settings})
}

func (h *Handler) GetPortfolioSettings(c *gin.Context) {
	ps, err := h.svc.GetPortfolioSettings(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "settings": ps})
}

func (h *Handler) UpdatePortfolioSettings(c *gin.Context) {
	var req models.UpdatePortfolioSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ps, err := h.svc.UpdatePortfolioSettings(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "settings": ps})
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "categories": categories})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	category, err := h.svc.CreateCategory(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "category": category})
}

func (h *Handler) ListEmployees(c *gin.Context) {
	employees, err := h.svc.ListEmployees(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "employees": employees})
}

func (h *Handler) CreateEmployee(c *gin.Context) {
	var req models.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	employee, err := h.svc.CreateEmployee(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "employee": employee})
}

func (h *Handler) RecordSocialSecurity(c *gin.Context) {
	var req models.SocialSecurityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	contribution, err := h.svc.RecordSocialSecurity(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "contribution": contribution})
}
