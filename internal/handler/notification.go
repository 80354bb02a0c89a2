package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/insider-one/notification-dispatcher/internal/domain"
	"github.com/insider-one/notification-dispatcher/internal/service"
)

// Dispatcher is the part of the notification service the handler needs
type Dispatcher interface {
	Dispatch(ctx context.Context, req *domain.NotificationRequest) (*service.DispatchResult, error)
	Channels() []domain.Channel
}

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	service    Dispatcher
	deliveries domain.DeliveryRepository
	metrics    *Metrics
	validate   *validator.Validate
}

// NewNotificationHandler creates a new NotificationHandler. deliveries and
// metrics may be nil.
func NewNotificationHandler(service Dispatcher, deliveries domain.DeliveryRepository, metrics *Metrics) *NotificationHandler {
	return &NotificationHandler{
		service:    service,
		deliveries: deliveries,
		metrics:    metrics,
		validate:   validator.New(),
	}
}

// RegisterRoutes registers notification routes
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Send)
	r.Get("/{requestId}", h.GetByRequestID)
}

// SendNotificationRequest is the body of a send request
type SendNotificationRequest struct {
	Recipient string            `json:"recipient" validate:"required,max=512"`
	Subject   string            `json:"subject" validate:"required,max=998"`
	Body      string            `json:"body" validate:"required"`
	Metadata  map[string]string `json:"metadata,omitempty" validate:"omitempty,max=64,dive,keys,required,max=128,endkeys,max=4096"`
	Channels  []string          `json:"channels" validate:"required,min=1,max=16,dive,required"`
}

// toDomain parses the channel names; every unknown name is reported
func (req SendNotificationRequest) toDomain() (*domain.NotificationRequest, error) {
	channels := make([]domain.Channel, 0, len(req.Channels))
	var errs []domain.ValidationError
	for _, name := range req.Channels {
		c, err := domain.ParseChannel(name)
		if err != nil {
			errs = append(errs, domain.NewValidationError("channels", "unknown channel "+strings.TrimSpace(name)))
			continue
		}
		channels = append(channels, c)
	}
	if len(errs) > 0 {
		return nil, domain.ValidationErrors{Errors: errs}
	}

	return &domain.NotificationRequest{
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Body:      req.Body,
		Metadata:  req.Metadata,
		Channels:  channels,
	}, nil
}

// Send dispatches a notification and returns one result per channel.
// Channel failures are part of a 200 response.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendNotificationRequest
	if err := DecodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", validationDetails(err))
		return
	}

	notification, err := req.toDomain()
	if err != nil {
		HandleError(w, err)
		return
	}

	result, err := h.service.Dispatch(r.Context(), notification)
	if err != nil {
		HandleError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordDispatch()
	}

	JSON(w, http.StatusOK, result)
}

// DeliveryLog is the stored outcome of an earlier request
type DeliveryLog struct {
	RequestID uuid.UUID                `json:"request_id"`
	Results   []*domain.DeliveryRecord `json:"results"`
}

// GetByRequestID returns the recorded outcomes of an earlier request
func (h *NotificationHandler) GetByRequestID(w http.ResponseWriter, r *http.Request) {
	if h.deliveries == nil {
		JSONError(w, http.StatusNotImplemented, "DELIVERY_LOG_DISABLED", "Delivery log is not configured", nil)
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
	if err != nil {
		JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid request ID format", nil)
		return
	}

	records, err := h.deliveries.ListByRequestID(r.Context(), requestID)
	if err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, DeliveryLog{RequestID: requestID, Results: records})
}

// ChannelsResponse lists the channels that can currently be delivered
type ChannelsResponse struct {
	Channels []domain.Channel `json:"channels"`
}

// Channels lists the registered channels
func (h *NotificationHandler) Channels(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, ChannelsResponse{Channels: h.service.Channels()})
}

func validationDetails(err error) any {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	details := make([]domain.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, domain.NewValidationError(
			strings.ToLower(fe.Field()),
			"failed on the '"+fe.Tag()+"' rule",
		))
	}
	return details
}
