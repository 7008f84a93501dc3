package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"invoice-console/internal/service"
	"invoice-console/internal/session"
	"invoice-console/internal/storage"
)

// Config carries the collaborators of the console routes. Storage is
// optional; archive routes answer 503 without it.
type Config struct {
	Guard     *session.Guard
	Auth      service.AuthService
	Clients   service.ClientService
	Invoices  service.InvoiceService
	Company   service.CompanyService
	Storage   storage.Service
	Bucket    string
	KeyPrefix string
	// ArchiveURLTTL bounds presigned links to archived invoices.
	ArchiveURLTTL time.Duration
	Logger        *logrus.Logger
}

// Handler wires console routes to the session guard and backend services.
type Handler struct {
	guard     *session.Guard
	auth      service.AuthService
	clients   service.ClientService
	invoices  service.InvoiceService
	company   service.CompanyService
	storage   storage.Service
	bucket    string
	keyPrefix string
	urlTTL    time.Duration
	logger    *logrus.Entry
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ArchiveURLTTL <= 0 {
		cfg.ArchiveURLTTL = 15 * time.Minute
	}
	return &Handler{
		guard:     cfg.Guard,
		auth:      cfg.Auth,
		clients:   cfg.Clients,
		invoices:  cfg.Invoices,
		company:   cfg.Company,
		storage:   cfg.Storage,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		urlTTL:    cfg.ArchiveURLTTL,
		logger:    cfg.Logger.WithField("component", "console"),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	// account actions are not navigations and bypass the guard
	router.POST("/register", h.register)
	router.POST("/logout", h.logout)
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	pages := router.Group("/")
	pages.Use(h.sessionGuard())
	{
		pages.GET("/login", h.loginView)
		pages.POST("/login", h.login)

		pages.GET("/", h.dashboard)

		pages.GET("/all-clients", h.allClients)
		pages.GET("/add-client", h.newClientForm)
		pages.POST("/add-client", h.createClient)
		pages.GET("/edit-client/:id", h.editClientForm)
		pages.PUT("/edit-client/:id", h.updateClient)
		pages.DELETE("/edit-client/:id", h.deleteClient)

		pages.GET("/all-invoices", h.allInvoices)
		pages.GET("/invoice-form", h.newInvoiceForm)
		pages.GET("/invoice-form/:id", h.editInvoiceForm)
		pages.POST("/invoice-form", h.createInvoice)
		pages.PUT("/invoice-form/:id", h.updateInvoice)
		pages.POST("/invoice-form/items", h.applyItemAction)

		pages.GET("/invoice-details/:id", h.invoiceDetails)
		pages.DELETE("/invoice-details/:id", h.deleteInvoice)
		pages.GET("/invoice-details/:id/pdf", h.invoicePDF)
		pages.GET("/invoice-details/:id/archive", h.listArchives)
		pages.POST("/invoice-details/:id/archive", h.archiveInvoice)

		pages.GET("/register-company", h.registerCompanyView)
		pages.POST("/register-company", h.registerCompany)
	}
}

// sessionGuard runs the session guard for every navigation. Redirects are
// only issued when the target differs from the requested path.
func (h *Handler) sessionGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		d, err := h.guard.Check(c.Request.Context(), path)
		if err != nil {
			h.logger.WithError(err).Error("session check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}
		if d.Redirect != "" && d.Redirect != path {
			c.Redirect(http.StatusSeeOther, d.Redirect)
			c.Abort()
			return
		}
		if !d.Render {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, Location")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
