package hooks

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memberstock-backend/internal/integration"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
	"github.com/angelmondragon/memberstock-backend/pkg/metrics"
)

// Event names the host CRM emits.
const (
	EventMembershipCreate       = "membership.create"
	EventMembershipStatusChange = "membership.status_change"
	EventContributionCompleted  = "contribution.completed"
)

// Payload is the envelope posted by the CRM webhook or carried on the
// Pub/Sub topic.
type Payload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// HandlerFunc decodes and processes one event's data payload.
type HandlerFunc func(ctx context.Context, data json.RawMessage) error

// Dispatcher routes incoming events through an explicit registration
// table built at startup. Unknown events are logged and dropped.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	metrics  *metrics.HookMetrics
	log      *logger.Logger
	now      func() time.Time
}

// NewDispatcher wires the integration service behind the event table.
func NewDispatcher(svc integration.Service, hookMetrics *metrics.HookMetrics, log *logger.Logger) (*Dispatcher, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "integration service required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}

	d := &Dispatcher{
		handlers: map[string]HandlerFunc{},
		metrics:  hookMetrics,
		log:      log,
		now:      time.Now,
	}
	d.register(EventMembershipCreate, membershipCreateHandler(svc))
	d.register(EventMembershipStatusChange, membershipStatusHandler(svc))
	d.register(EventContributionCompleted, contributionCompletedHandler(svc))
	return d, nil
}

func (d *Dispatcher) register(event string, handler HandlerFunc) {
	d.handlers[event] = handler
}

// Events lists the registered event names.
func (d *Dispatcher) Events() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler registered for the payload's event. The
// returned error is for the caller's logs; ingress boundaries still
// acknowledge the event so the CRM does not retry forever.
func (d *Dispatcher) Dispatch(ctx context.Context, payload Payload) error {
	ctx = d.log.WithHookEvent(ctx, payload.Event)

	handler, ok := d.handlers[payload.Event]
	if !ok {
		d.log.Warn(ctx, "no handler registered for event")
		return nil
	}

	started := d.now()
	err := handler(ctx, payload.Data)
	d.metrics.ObserveDuration(payload.Event, time.Since(started))
	if err != nil {
		d.metrics.IncFailure(payload.Event)
		d.log.Error(ctx, "hook event failed", err)
		return err
	}
	d.metrics.IncSuccess(payload.Event)
	return nil
}

type membershipCreateData struct {
	MembershipID     int64   `json:"membership_id"`
	ContactID        int64   `json:"contact_id"`
	MembershipTypeID int64   `json:"membership_type_id"`
	ContributionID   *int64  `json:"contribution_id,omitempty"`
	ProductID        *string `json:"inventory_product_id,omitempty"`
	PhoneNumber      *string `json:"phone_number,omitempty"`
}

func membershipCreateHandler(svc integration.Service) HandlerFunc {
	return func(ctx context.Context, data json.RawMessage) error {
		var body membershipCreateData
		if err := json.Unmarshal(data, &body); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode membership.create payload")
		}

		evt := integration.MembershipCreatedEvent{
			MembershipID:     body.MembershipID,
			ContactID:        body.ContactID,
			MembershipTypeID: body.MembershipTypeID,
			ContributionID:   body.ContributionID,
			PhoneNumber:      body.PhoneNumber,
		}
		if body.ProductID != nil {
			productID, err := uuid.Parse(*body.ProductID)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory_product_id")
			}
			evt.ProductID = &productID
		}
		return svc.HandleMembershipCreated(ctx, evt)
	}
}

type membershipStatusData struct {
	MembershipID   int64  `json:"membership_id"`
	ContactID      int64  `json:"contact_id"`
	Status         string `json:"status"`
	ContributionID *int64 `json:"contribution_id,omitempty"`
}

func membershipStatusHandler(svc integration.Service) HandlerFunc {
	return func(ctx context.Context, data json.RawMessage) error {
		var body membershipStatusData
		if err := json.Unmarshal(data, &body); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode membership.status_change payload")
		}
		return svc.HandleMembershipStatusChanged(ctx, integration.MembershipStatusChangedEvent{
			MembershipID:   body.MembershipID,
			ContactID:      body.ContactID,
			Status:         body.Status,
			ContributionID: body.ContributionID,
		})
	}
}

type contributionCompletedData struct {
	ContributionID int64 `json:"contribution_id"`
	ContactID      int64 `json:"contact_id"`
}

func contributionCompletedHandler(svc integration.Service) HandlerFunc {
	return func(ctx context.Context, data json.RawMessage) error {
		var body contributionCompletedData
		if err := json.Unmarshal(data, &body); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode contribution.completed payload")
		}
		return svc.HandleContributionCompleted(ctx, integration.ContributionCompletedEvent{
			ContributionID: body.ContributionID,
			ContactID:      body.ContactID,
		})
	}
}
