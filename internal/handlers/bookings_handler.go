package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/jolly-booking-intake/internal/bookings"
	"github.com/imrishuroy/jolly-booking-intake/internal/catalog"
	"github.com/imrishuroy/jolly-booking-intake/internal/intake"
	"github.com/imrishuroy/jolly-booking-intake/internal/middleware"
	"github.com/imrishuroy/jolly-booking-intake/internal/validation"
)

// BookingService is what the routes need from the intake service.
type BookingService interface {
	Submit(ctx context.Context, req validation.BookingRequest) intake.Result
	Get(ctx context.Context, id string) (*bookings.Record, error)
	Confirm(ctx context.Context, id string) (*bookings.Record, error)
	Cancel(ctx context.Context, id string) (*bookings.Record, error)
}

// HandlerConfig groups dependencies for the booking routes.
type HandlerConfig struct {
	Service   BookingService
	Catalog   *catalog.Catalog
	Logger    *slog.Logger
	RateLimit gin.HandlerFunc // optional, guards POST /api/book

	// OperatorSecret enables the operator routes when non-empty.
	OperatorSecret string
}

// Response is the body of every booking endpoint.
type Response struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	ID      string                  `json:"id,omitempty"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

const (
	msgAccepted  = "Booking received successfully"
	msgRejected  = "Please correct the highlighted fields"
	msgDuplicate = "A booking for this date, time and package already exists"
	msgFailed    = "Failed to process booking"
)

// RegisterBookingRoutes registers the public booking API.
func RegisterBookingRoutes(r gin.IRouter, cfg HandlerConfig) {
	book := []gin.HandlerFunc{}
	if cfg.RateLimit != nil {
		book = append(book, cfg.RateLimit)
	}
	book = append(book, submitBooking(cfg))
	r.POST("/api/book", book...)

	r.GET("/api/packages", listPackages(cfg.Catalog))

	if cfg.OperatorSecret != "" {
		RegisterOperatorRoutes(r, cfg)
	}
}

func submitBooking(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		reqID := middleware.GetRequestID(c)

		var req validation.BookingRequest
		if err := validation.BindJSON(c, &req); err != nil {
			// BindJSON already wrote a 400
			cfg.Logger.InfoContext(ctx, "booking_malformed", "request_id", reqID, "error", err)
			return
		}

		res := cfg.Service.Submit(ctx, req)
		switch res.Outcome {
		case intake.Accepted:
			c.Header("Location", fmt.Sprintf("/api/bookings/%s", res.ID))
			c.JSON(http.StatusOK, Response{Success: true, Message: msgAccepted, ID: res.ID})
		case intake.Rejected:
			c.JSON(http.StatusBadRequest, Response{Success: false, Message: msgRejected, Errors: res.Errors})
		case intake.Duplicate:
			c.JSON(http.StatusConflict, Response{Success: false, Message: msgDuplicate, ID: res.ExistingID})
		default:
			cfg.Logger.ErrorContext(ctx, "booking_failed", "request_id", reqID, "reason", res.Reason)
			c.JSON(http.StatusInternalServerError, Response{Success: false, Message: msgFailed})
		}
	}
}

// PackageView is one entry of GET /api/packages.
type PackageView struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	Price           string `json:"price"`
	PriceCents      int64  `json:"priceCents"`
	DurationMinutes int    `json:"durationMinutes"`
}

func listPackages(c *catalog.Catalog) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		items := c.All()
		out := make([]PackageView, 0, len(items))
		for _, o := range items {
			out = append(out, PackageView{
				ID:              o.ID,
				Label:           o.Label,
				Price:           o.Price(),
				PriceCents:      o.PriceCents,
				DurationMinutes: o.DurationMinutes,
			})
		}
		ctx.JSON(http.StatusOK, gin.H{"packages": out})
	}
}

// RegisterOperatorRoutes registers the owner's review routes behind JWT auth.
func RegisterOperatorRoutes(r gin.IRouter, cfg HandlerConfig) {
	g := r.Group("/api/bookings", middleware.OperatorAuth([]byte(cfg.OperatorSecret)))

	g.GET("/:id", func(c *gin.Context) {
		rec, err := cfg.Service.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeOperatorError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	})
	g.POST("/:id/confirm", func(c *gin.Context) {
		rec, err := cfg.Service.Confirm(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeOperatorError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	})
	g.POST("/:id/cancel", func(c *gin.Context) {
		rec, err := cfg.Service.Cancel(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeOperatorError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	})
}

func writeOperatorError(c *gin.Context, logger *slog.Logger, err error) {
	var ite *bookings.InvalidTransitionError
	switch {
	case errors.Is(err, bookings.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Message: "Booking not found"})
	case errors.As(err, &ite):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Message: fmt.Sprintf("Cannot move booking from %s to %s", ite.From, ite.To),
		})
	default:
		logger.ErrorContext(c.Request.Context(), "operator_request_failed",
			"request_id", middleware.GetRequestID(c),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Message: "Failed to update booking"})
	}
}

// RegisterHealth registers GET /health.
func RegisterHealth(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
