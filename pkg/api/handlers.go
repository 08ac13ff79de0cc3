package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contact-guard/pkg/guard"
	"contact-guard/pkg/models"
	"contact-guard/pkg/services"
	"contact-guard/pkg/storage"
	"contact-guard/pkg/utils"
)

const maxBodyBytes = 64 << 10

// StoreFactory returns the rate limit store for the client behind c
type StoreFactory func(c *gin.Context) storage.Store

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	submissionService services.ContactSubmissionService
	stores            StoreFactory
	logger            *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(submissionService services.ContactSubmissionService, stores StoreFactory, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		submissionService: submissionService,
		stores:            stores,
		logger:            logger,
	}
}

// ClientStores scopes a shared backend by a hash of the client IP. When
// cookieFallback is set, the visitor's cookies take over for any call the
// backend fails.
func ClientStores(backend storage.Store, salt string, cookieFallback, cookieSecure bool, cookieMaxAge int, logger *zap.Logger) StoreFactory {
	return func(c *gin.Context) storage.Store {
		scoped := storage.Scoped(backend, utils.HashString(c.ClientIP(), salt))
		if !cookieFallback {
			return scoped
		}
		return storage.WithFallback(scoped, storage.NewCookieStore(c, cookieMaxAge, cookieSecure), logger)
	}
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// HandleContactSubmission runs a contact form through the guard and answers
// with the notification the page should display.
func (h *Handlers) HandleContactSubmission(c *gin.Context) {
	var form models.ContactForm

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(&form); err != nil {
		h.logger.Debug("Error parsing contact form", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.Notification{
			Kind:    models.KindError,
			Message: "Requête invalide.",
		})
		return
	}

	note, err := h.submissionService.ProcessSubmission(c.Request.Context(), h.stores(c), form)
	c.JSON(statusFor(err), note)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, guard.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, guard.ErrFieldInvalid), errors.Is(err, guard.ErrSpamDetected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, guard.ErrDispatchFailed):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrStateUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RegisterRoutes wires the handlers onto router
func (h *Handlers) RegisterRoutes(router gin.IRoutes) {
	router.POST("/api/contact", h.HandleContactSubmission)
	router.GET("/health", h.HealthCheck)
}
