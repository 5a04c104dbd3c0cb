package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/fastbillsync/internal/invoice/service"
	"go.uber.org/zap"
)

// Admin notices, as shown to the shop operator.
const (
	NoticeGotInvoice         = "got_fastbill_invoice"
	NoticeGotInvoiceError    = "got_fastbill_invoice_error"
	NoticeMailedInvoice      = "mailed_fastbill_invoice"
	NoticeMailedInvoiceError = "mailed_fastbill_invoice_error"
)

type createInvoiceRequest struct {
	Kind string `json:"kind"`
}

type bulkInvoiceLinkRequest struct {
	OrderIDs []int64 `json:"order_ids"`
}

type invoiceLinkResult struct {
	OrderID     int64  `json:"order_id"`
	Notice      string `json:"notice"`
	DocumentURL string `json:"document_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) ListTemplates(c *gin.Context) {
	templates, err := managerFrom(c).ListTemplates(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": templates})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	kind, err := invoicedomain.ParseTemplateKind(req.Kind)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, ok := s.loadOrder(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	manager := managerFrom(c)
	if err := manager.CreateInvoice(ctx, order, kind); err != nil {
		AbortWithError(c, err)
		return
	}
	invoiceID, err := manager.StoredInvoiceID(ctx, order.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"order_id": order.ID, "invoice_id": invoiceID}})
}

func (s *Server) GetInvoice(c *gin.Context) {
	order, ok := s.loadOrder(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	manager := managerFrom(c)
	invoiceID, err := manager.StoredInvoiceID(ctx, order.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if invoiceID <= 0 {
		AbortWithError(c, invoicedomain.ErrNoInvoice)
		return
	}

	item, err := manager.GetInvoice(ctx, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if item == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) SetInvoiceLink(c *gin.Context) {
	order, ok := s.loadOrder(c)
	if !ok {
		return
	}

	url, err := managerFrom(c).FetchDocumentURL(c.Request.Context(), order)
	if err != nil {
		s.noticeError(c, NoticeGotInvoiceError, err)
		return
	}
	notice := NoticeGotInvoice
	if url == "" {
		notice = NoticeGotInvoiceError
	}

	c.JSON(http.StatusOK, invoiceLinkResult{OrderID: order.ID, Notice: notice, DocumentURL: url})
}

// BulkSetInvoiceLink reports one notice per order and never fails as a whole.
func (s *Server) BulkSetInvoiceLink(c *gin.Context) {
	var req bulkInvoiceLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.OrderIDs) == 0 {
		AbortWithError(c, newValidationError("order_ids", "required", "order_ids is required"))
		return
	}

	ctx := c.Request.Context()
	manager := managerFrom(c)
	results := make([]invoiceLinkResult, 0, len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		result := invoiceLinkResult{OrderID: id, Notice: NoticeGotInvoiceError}
		order, err := s.orders.GetOrder(ctx, id)
		if err == nil {
			result.DocumentURL, err = manager.FetchDocumentURL(ctx, order)
		}
		switch {
		case err != nil:
			_, payload := mapError(err)
			result.Error = payload.Message
			s.log.Warn("set invoice link failed", zap.Int64("order_id", id), zap.Error(err))
		case result.DocumentURL != "":
			result.Notice = NoticeGotInvoice
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (s *Server) ResendInvoice(c *gin.Context) {
	order, ok := s.loadOrder(c)
	if !ok {
		return
	}

	if err := managerFrom(c).SendInvoiceByEmail(c.Request.Context(), order); err != nil {
		s.noticeError(c, NoticeMailedInvoiceError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": order.ID, "notice": NoticeMailedInvoice})
}

// EmailTag renders the download link for customer emails. It is empty unless
// online invoices are enabled and a document URL is stored.
func (s *Server) EmailTag(c *gin.Context) {
	id, err := parseOrderID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	url, err := managerFrom(c).DocumentURL(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoiceservice.InvoiceLinkTag(url)})
}

func (s *Server) noticeError(c *gin.Context, notice string, err error) {
	status, payload := mapError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"notice": notice, "error": payload})
}
