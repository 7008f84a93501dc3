package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"invoice-console/internal/api"
	"invoice-console/internal/domain"
	"invoice-console/internal/invoice"
	"invoice-console/internal/onboarding"
	"invoice-console/internal/service"
	"invoice-console/internal/session"
	"invoice-console/internal/storage"
	"invoice-console/internal/validation"
)

const (
	noRecordsMessage = "No records found"

	tabClients  = "clients"
	tabInvoices = "invoices"
)

// listing is a list view. Fetch failures render as an empty list.
type listing[T any] struct {
	Items   []T    `json:"items"`
	Message string `json:"message,omitempty"`
}

func newListing[T any](items []T) listing[T] {
	if len(items) == 0 {
		return listing[T]{Items: []T{}, Message: noRecordsMessage}
	}
	return listing[T]{Items: items}
}

// invoiceRow is an invoice as shown in lists, with its client resolved.
type invoiceRow struct {
	domain.Invoice
	ClientName string  `json:"clientName"`
	Total      float64 `json:"total"`
}

func invoiceRows(invoices []domain.Invoice, clients []domain.Client) []invoiceRow {
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	rows := make([]invoiceRow, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, invoiceRow{
			Invoice:    inv,
			ClientName: names[inv.ClientID],
			Total:      invoice.FromLineItems(inv.Items).Total(),
		})
	}
	return rows
}

// fail writes err as a response. Field errors are 422; backend rejections
// keep their 4xx status; everything else is a bad gateway with the generic
// message.
func (h *Handler) fail(c *gin.Context, err error) {
	if fe, ok := validation.As(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fe})
		return
	}
	if errors.Is(err, service.ErrInvalidID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusBadGateway
	if code := api.StatusCode(err); code >= 400 && code < 500 {
		status = code
	}
	h.requestLogger(c).WithError(err).Warn("request failed")
	c.JSON(status, gin.H{"error": api.UserMessage(err)})
}

func (h *Handler) requestLogger(c *gin.Context) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})
}

func (h *Handler) loginView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"view": "login"})
}

func (h *Handler) login(c *gin.Context) {
	var input domain.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.auth.Login(c.Request.Context(), input); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, session.HomePath)
}

func (h *Handler) register(c *gin.Context) {
	var input domain.RegistrationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.auth.Register(c.Request.Context(), input); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful. Please log in."})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		h.requestLogger(c).WithError(err).Error("failed to clear session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": api.GenericFailureMessage})
		return
	}
	c.Redirect(http.StatusSeeOther, session.LoginPath)
}

// dashboard renders the signed-in home. The onboarding gate runs first and
// lives only for this request.
func (h *Handler) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.requestLogger(c)

	gate := onboarding.NewGate(h.company, log)
	defer gate.Unmount()

	res := gate.Resolve(ctx)
	if !res.Render() {
		c.Redirect(http.StatusSeeOther, res.Redirect)
		return
	}

	tab := c.DefaultQuery("tab", tabClients)
	if tab != tabInvoices {
		tab = tabClients
	}

	clients, invoices := h.fetchLists(c)
	c.JSON(http.StatusOK, gin.H{
		"view":     "dashboard",
		"tab":      tab,
		"company":  res.Company,
		"clients":  newListing(clients),
		"invoices": newListing(invoiceRows(invoices, clients)),
	})
}

// fetchLists loads clients and invoices concurrently. A failed fetch yields
// an empty list and never fails the other.
func (h *Handler) fetchLists(c *gin.Context) ([]domain.Client, []domain.Invoice) {
	var (
		clients  []domain.Client
		invoices []domain.Invoice
	)
	ctx := c.Request.Context()
	log := h.requestLogger(c)

	var g errgroup.Group
	g.Go(func() error {
		list, err := h.clients.List(ctx)
		if err != nil {
			log.WithError(err).Warn("failed to fetch clients")
			return nil
		}
		clients = list
		return nil
	})
	g.Go(func() error {
		list, err := h.invoices.List(ctx)
		if err != nil {
			log.WithError(err).Warn("failed to fetch invoices")
			return nil
		}
		invoices = list
		return nil
	})
	_ = g.Wait()

	return clients, invoices
}

func (h *Handler) allClients(c *gin.Context) {
	clients, err := h.clients.List(c.Request.Context())
	if err != nil {
		h.requestLogger(c).WithError(err).Warn("failed to fetch clients")
	}
	c.JSON(http.StatusOK, gin.H{"view": "all-clients", "clients": newListing(clients)})
}

func (h *Handler) newClientForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"view": "client-form", "client": domain.Client{}})
}

func (h *Handler) createClient(c *gin.Context) {
	var client domain.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.clients.Create(c.Request.Context(), client); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/all-clients")
}

func (h *Handler) editClientForm(c *gin.Context) {
	client, err := h.clients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": "client-form", "client": client})
}

func (h *Handler) updateClient(c *gin.Context) {
	var client domain.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.clients.Update(c.Request.Context(), c.Param("id"), client); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/all-clients")
}

// deleteClient removes the client and answers with the refreshed list.
func (h *Handler) deleteClient(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.clients.Delete(ctx, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}

	clients, err := h.clients.List(ctx)
	if err != nil {
		h.requestLogger(c).WithError(err).Warn("failed to refresh clients")
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client deleted", "clients": newListing(clients)})
}

func (h *Handler) allInvoices(c *gin.Context) {
	clients, invoices := h.fetchLists(c)
	c.JSON(http.StatusOK, gin.H{"view": "all-invoices", "invoices": newListing(invoiceRows(invoices, clients))})
}

func (h *Handler) newInvoiceForm(c *gin.Context) {
	h.renderInvoiceForm(c, invoice.NewDraft())
}

func (h *Handler) editInvoiceForm(c *gin.Context) {
	inv, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderInvoiceForm(c, invoice.DraftFromInvoice(*inv))
}

// renderInvoiceForm answers with the draft and the clients it can be
// billed to.
func (h *Handler) renderInvoiceForm(c *gin.Context, draft invoice.Draft) {
	clients, err := h.clients.List(c.Request.Context())
	if err != nil {
		h.requestLogger(c).WithError(err).Warn("failed to fetch clients")
	}
	c.JSON(http.StatusOK, gin.H{
		"view":      "invoice-form",
		"draft":     draft,
		"total":     draft.Total(),
		"canAppend": draft.Items.CanAppend(),
		"clients":   newListing(clients),
	})
}

type itemActionRequest struct {
	Items  invoice.Items         `json:"items"`
	Action invoice.ActionPayload `json:"action"`
}

// applyItemAction runs one line-item transition and returns the new
// collection with its aggregate.
func (h *Handler) applyItemAction(c *gin.Context) {
	var req itemActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Items) == 0 {
		req.Items = invoice.New()
	}

	action, err := req.Action.Action()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	items, err := invoice.Reduce(req.Items, action)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     err.Error(),
			"items":     req.Items,
			"total":     req.Items.Total(),
			"canAppend": req.Items.CanAppend(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"total":     items.Total(),
		"canAppend": items.CanAppend(),
	})
}

func (h *Handler) createInvoice(c *gin.Context) {
	var draft invoice.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.invoices.Create(c.Request.Context(), draft); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/all-invoices")
}

func (h *Handler) updateInvoice(c *gin.Context) {
	var draft invoice.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.invoices.Update(c.Request.Context(), c.Param("id"), draft); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/all-invoices")
}

// loadDocument gathers the invoice, its client and the issuing company.
// Only the invoice is required; missing parties print as blanks.
func (h *Handler) loadDocument(c *gin.Context) (invoice.Document, error) {
	ctx := c.Request.Context()
	log := h.requestLogger(c)

	inv, err := h.invoices.Get(ctx, c.Param("id"))
	if err != nil {
		return invoice.Document{}, err
	}
	doc := invoice.Document{Invoice: *inv}

	var g errgroup.Group
	g.Go(func() error {
		company, err := h.company.Get(ctx)
		if err != nil {
			log.WithError(err).Warn("failed to fetch company")
			return nil
		}
		doc.Company = company
		return nil
	})
	if inv.ClientID != "" {
		g.Go(func() error {
			client, err := h.clients.Get(ctx, inv.ClientID)
			if err != nil {
				log.WithError(err).WithField("client_id", inv.ClientID).Warn("failed to fetch client")
				return nil
			}
			doc.Client = client
			return nil
		})
	}
	_ = g.Wait()

	return doc, nil
}

func (h *Handler) invoiceDetails(c *gin.Context) {
	doc, err := h.loadDocument(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":    "invoice-details",
		"invoice": doc.Invoice,
		"client":  doc.Client,
		"company": doc.Company,
		"total":   invoice.FromLineItems(doc.Invoice.Items).Total(),
	})
}

// deleteInvoice removes the invoice, then its archived copies. Archive
// cleanup failures are logged and do not fail the request.
func (h *Handler) deleteInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.invoices.Delete(ctx, id); err != nil {
		h.fail(c, err)
		return
	}

	var warnings []string
	if h.storage != nil && h.bucket != "" {
		prefix := storage.InvoicePrefix(h.keyPrefix, id)
		if err := h.storage.DeletePrefix(ctx, h.bucket, prefix); err != nil {
			h.requestLogger(c).WithError(err).WithField("prefix", prefix).Warn("failed to delete archived invoices")
			warnings = append(warnings, fmt.Sprintf("failed to delete archived copies: %v", err))
		}
	}

	resp := gin.H{"message": "Invoice deleted"}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) renderPDF(c *gin.Context) (invoice.Document, []byte, bool) {
	doc, err := h.loadDocument(c)
	if err != nil {
		h.fail(c, err)
		return doc, nil, false
	}
	var buf bytes.Buffer
	if err := invoice.WritePDF(&buf, doc); err != nil {
		h.requestLogger(c).WithError(err).Error("failed to render invoice")
		c.JSON(http.StatusInternalServerError, gin.H{"error": api.GenericFailureMessage})
		return doc, nil, false
	}
	return doc, buf.Bytes(), true
}

func (h *Handler) invoicePDF(c *gin.Context) {
	doc, data, ok := h.renderPDF(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdfName(doc.Invoice)))
	c.Data(http.StatusOK, "application/pdf", data)
}

func pdfName(inv domain.Invoice) string {
	name := strings.TrimSpace(inv.InvoiceNumber)
	if name == "" {
		name = inv.ID
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' {
			return '-'
		}
		return r
	}, name)
	return "invoice-" + name + ".pdf"
}

func (h *Handler) archiveEnabled(c *gin.Context) bool {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "invoice archive is not configured"})
		return false
	}
	return true
}

// archiveInvoice renders the invoice and stores the PDF in the archive
// bucket, answering with a short-lived download link.
func (h *Handler) archiveInvoice(c *gin.Context) {
	if !h.archiveEnabled(c) {
		return
	}
	_, data, ok := h.renderPDF(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	log := h.requestLogger(c)
	key := storage.NewInvoiceKey(h.keyPrefix, c.Param("id"))

	location, err := h.storage.Upload(ctx, h.bucket, key, bytes.NewReader(data), "application/pdf")
	if err != nil {
		log.WithError(err).WithField("key", key).Error("failed to archive invoice")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to archive invoice"})
		return
	}

	resp := gin.H{"key": key, "location": location}
	url, err := h.storage.GetObjectURL(ctx, h.bucket, key, h.urlTTL)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("failed to presign archived invoice")
	} else {
		resp["url"] = url
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) listArchives(c *gin.Context) {
	if !h.archiveEnabled(c) {
		return
	}
	prefix := storage.InvoicePrefix(h.keyPrefix, c.Param("id"))
	objects, err := h.storage.ListObjects(c.Request.Context(), h.bucket, prefix)
	if err != nil {
		h.requestLogger(c).WithError(err).WithField("prefix", prefix).Warn("failed to list archived invoices")
		objects = nil
	}
	c.JSON(http.StatusOK, gin.H{"archives": newListing(objects)})
}

// registerCompanyView shows the onboarding form, or sends actors who
// already have a company back home.
func (h *Handler) registerCompanyView(c *gin.Context) {
	company, err := h.company.Get(c.Request.Context())
	if err != nil {
		h.requestLogger(c).WithError(err).Warn("failed to fetch company")
	}
	if company != nil && !company.IsZero() {
		c.Redirect(http.StatusSeeOther, session.HomePath)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": "register-company", "company": domain.Company{}})
}

func (h *Handler) registerCompany(c *gin.Context) {
	var company domain.Company
	if err := c.ShouldBindJSON(&company); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.company.Register(c.Request.Context(), company); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, session.HomePath)
}
