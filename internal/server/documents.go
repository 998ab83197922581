package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/nannyhub/internal/invoice/domain"
	advicedomain "github.com/smallbiznis/nannyhub/internal/paymentadvice/domain"
	"github.com/smallbiznis/nannyhub/internal/providers/pdf"
)

const pdfContentType = "application/pdf"

func (s *Server) ListPaymentAdvices(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req advicedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.NannyID = id.UserID

	resp, err := s.adviceSvc.ListForNanny(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DownloadPaymentAdvice renders the advice on demand. Only the nanny it
// was issued to, or an admin, can fetch it.
func (s *Server) DownloadPaymentAdvice(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	adviceID, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	advice, err := s.adviceSvc.Get(ctx, adviceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if advice.NannyID != id.UserID && !id.IsAdmin() {
		AbortWithError(c, ErrNotFound)
		return
	}

	body, err := s.adviceSvc.Render(ctx, advice)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	name := pdf.FileName("payment advice", advice.BookingID.String(), advice.PeriodStart.UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, pdfContentType, body)
}

func (s *Server) ListInvoices(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req invoicedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ClientID = id.UserID

	resp, err := s.invoiceSvc.ListForClient(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DownloadInvoice(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	invoiceID, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	inv, err := s.invoiceSvc.Get(ctx, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if inv.ClientID != id.UserID && !id.IsAdmin() {
		AbortWithError(c, ErrNotFound)
		return
	}

	body, err := s.invoiceSvc.Render(ctx, inv)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+pdf.FileName("invoice", inv.InvoiceNumber)+`"`)
	c.Data(http.StatusOK, pdfContentType, body)
}
