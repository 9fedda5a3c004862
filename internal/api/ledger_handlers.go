package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/rentledger/internal/export"
	"github.com/rongwang/rentledger/internal/models"
)

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) GetTotals(c *gin.Context) {
	targetID, ok := optionalID(c, "targetId")
	if !ok {
		return
	}
	month, year, ok := period(c)
	if !ok {
		return
	}

	resp, err := h.svc.Totals(c.Request.Context(), models.TotalsQuery{
		TargetKind: models.TargetKind(c.Query("targetKind")),
		TargetID:   targetID,
		FieldName:  c.Query("fieldName"),
		Month:      month,
		Year:       year,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetTotalsByField(c *gin.Context) {
	targetID, ok := optionalID(c, "targetId")
	if !ok {
		return
	}
	month, year, ok := period(c)
	if !ok {
		return
	}

	resp, err := h.svc.TotalsByField(c.Request.Context(), models.TotalsByFieldQuery{
		TargetKind: models.TargetKind(c.Query("targetKind")),
		TargetID:   targetID,
		Month:      month,
		Year:       year,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CreateLedgerEntry(c *gin.Context) {
	var req models.CreateLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.CreateLedgerEntry(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) DeleteLedgerEntry(c *gin.Context) {
	resp, err := h.svc.DeleteLedgerEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetBuildingSummary(c *gin.Context) {
	buildingID, ok := pathID(c)
	if !ok {
		return
	}
	month, year, ok := period(c)
	if !ok {
		return
	}

	s, err := h.svc.BuildingSummary(c.Request.Context(), buildingID, month, year)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SummaryResponse{Status: "success", Summary: *s})
}

func (h *Handler) GetPortfolioSummary(c *gin.Context) {
	month, year, ok := period(c)
	if !ok {
		return
	}

	resp, err := h.svc.PortfolioSummary(c.Request.Context(), month, year)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ExportPortfolioSummary(c *gin.Context) {
	month, year, ok := period(c)
	if !ok {
		return
	}

	resp, err := h.svc.PortfolioSummary(c.Request.Context(), month, year)
	if err != nil {
		h.writeError(c, err)
		return
	}

	f, err := export.PortfolioWorkbook(resp)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(month, year)+`"`)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.log.Error("Failed to write workbook", slog.String("error", err.Error()))
	}
}
