package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"facturas/internal/pipeline"
)

type processRequest struct {
	Name string `json:"name"`
	Text string `json:"text" binding:"required"`
	City string `json:"city"`
}

type classifyRequest struct {
	Text string `json:"text" binding:"required"`
}

// Healthz reports liveness.
func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ProcessInvoice runs the full pipeline on the posted text.
func (s *Server) ProcessInvoice(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	name := req.Name
	if name == "" {
		name = "request"
	}
	result, err := s.processor.Process(c.Request.Context(), pipeline.Document{
		Name: name,
		Text: req.Text,
		City: req.City,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !result.Validation.Valid {
		AbortWithError(c, &RequestError{Err: result.Error, Details: result.Validation.Errors})
		return
	}

	reqLog := requestLogger(c)
	reqLog.Debug().
		Str("invoice_id", result.ID).
		Str("status", string(result.Status)).
		Msg("Invoice processed")

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// ClassifyInvoice classifies the posted text without extracting fields.
func (s *Server) ClassifyInvoice(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.processor.Classify(req.Text)})
}

// TaxConfig returns the tax parameters in effect.
func (s *Server) TaxConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.processor.Config()})
}
