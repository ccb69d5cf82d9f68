package integration

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/memberstock-backend/internal/products"
	"github.com/angelmondragon/memberstock-backend/internal/sales"
	"github.com/angelmondragon/memberstock-backend/internal/variants"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

// Service reacts to host CRM events, keeping inventory and orders in
// step with membership lifecycles.
type Service interface {
	HandleMembershipCreated(ctx context.Context, evt MembershipCreatedEvent) error
	HandleMembershipStatusChanged(ctx context.Context, evt MembershipStatusChangedEvent) error
	HandleContributionCompleted(ctx context.Context, evt ContributionCompletedEvent) error
}

type service struct {
	products products.Service
	variants variants.Service
	sales    sales.Service
	log      *logger.Logger
}

// NewService constructs the CRM integration service.
func NewService(productSvc products.Service, variantSvc variants.Service, saleSvc sales.Service, log *logger.Logger) (Service, error) {
	if productSvc == nil {
		return nil, fmt.Errorf("product service required")
	}
	if variantSvc == nil {
		return nil, fmt.Errorf("variant service required")
	}
	if saleSvc == nil {
		return nil, fmt.Errorf("sale service required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		products: productSvc,
		variants: variantSvc,
		sales:    saleSvc,
		log:      log,
	}, nil
}

// HandleMembershipCreated assigns inventory for a fresh membership. An
// explicit product request claims from that product's pool; otherwise the
// membership type's auto-assign mappings are consulted and at most one
// unit is handed out.
func (s *service) HandleMembershipCreated(ctx context.Context, evt MembershipCreatedEvent) error {
	if evt.MembershipID <= 0 || evt.ContactID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "membership_id and contact_id must be positive")
	}
	ctx = s.log.WithMembershipID(ctx, evt.MembershipID)
	ctx = s.log.WithContactID(ctx, evt.ContactID)

	if evt.ProductID != nil {
		return s.assignExplicit(ctx, evt)
	}
	return s.assignAutomatic(ctx, evt)
}

func (s *service) assignExplicit(ctx context.Context, evt MembershipCreatedEvent) error {
	product, err := s.products.GetProduct(ctx, *evt.ProductID)
	if err != nil {
		return err
	}

	variant, assigned, err := s.variants.AssignToContact(ctx, product.ID, evt.ContactID, &evt.MembershipID, variants.AssignOptions{
		PhoneNumber: evt.PhoneNumber,
	})
	if err != nil {
		return err
	}
	if !assigned {
		return pkgerrors.New(pkgerrors.CodeConflict, "no available unit for requested product")
	}

	return s.finishAssignment(ctx, evt, product, variant)
}

func (s *service) assignAutomatic(ctx context.Context, evt MembershipCreatedEvent) error {
	candidates, err := s.products.GetAutoAssignProducts(ctx, evt.MembershipTypeID)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		s.log.Info(ctx, "no auto-assign products configured for membership type")
		return nil
	}

	var errs error
	for _, candidate := range candidates {
		product, err := s.products.GetProduct(ctx, candidate.ID)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		variant, assigned, err := s.variants.AssignToContact(ctx, product.ID, evt.ContactID, &evt.MembershipID, variants.AssignOptions{
			PhoneNumber: evt.PhoneNumber,
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !assigned {
			s.log.Warn(ctx, "auto-assign pool exhausted for product "+product.Code)
			continue
		}
		// One unit per membership; the first successful claim wins.
		return multierr.Append(errs, s.finishAssignment(ctx, evt, product, variant))
	}
	return errs
}

// finishAssignment settles inventory counters and, when a contribution
// accompanies the membership, opens the order recording the handout.
func (s *service) finishAssignment(ctx context.Context, evt MembershipCreatedEvent, product *products.ProductDTO, variant *variants.VariantDTO) error {
	var errs error
	if err := s.products.UpdateInventoryAfterSale(ctx, product.ID, 1); err != nil {
		errs = multierr.Append(errs, err)
	}

	if evt.ContributionID != nil {
		_, err := s.sales.CreateSale(ctx, sales.CreateSaleInput{
			ContactID:          evt.ContactID,
			ContributionID:     evt.ContributionID,
			MembershipID:       &evt.MembershipID,
			IsShippingRequired: true,
			Lines: []sales.SaleLineInput{{
				VariantID:      &variant.ID,
				Quantity:       1,
				Price:          product.CurrentPrice,
				Title:          product.Label,
				LineType:       enums.SaleDetailTypeDevice,
				ContributionID: evt.ContributionID,
			}},
		})
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	s.log.Info(ctx, "assigned unit "+variant.UniqueID+" for membership")
	return errs
}

// HandleMembershipStatusChanged mirrors the membership's lifecycle onto
// its units. Renewals reactivate and open a renewal order; terminal
// statuses suspend. Pending changes nothing.
func (s *service) HandleMembershipStatusChanged(ctx context.Context, evt MembershipStatusChangedEvent) error {
	if evt.MembershipID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "membership_id must be positive")
	}
	ctx = s.log.WithMembershipID(ctx, evt.MembershipID)
	ctx = s.log.WithContactID(ctx, evt.ContactID)

	status := enums.MembershipStatus(strings.ToLower(strings.TrimSpace(evt.Status)))
	reason := "membership_" + status.String()

	switch status {
	case enums.MembershipStatusNew, enums.MembershipStatusCurrent:
		var errs error
		reactivated, err := s.variants.ReactivateForMembership(ctx, evt.MembershipID, reason)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if reactivated > 0 {
			s.log.Info(ctx, fmt.Sprintf("reactivated %d units for membership renewal", reactivated))
		}

		_, created, err := s.sales.CreateFromMembershipRenewal(ctx, evt.MembershipID, evt.ContactID, evt.ContributionID)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if created {
			s.log.Info(ctx, "opened renewal order for membership")
		}
		return errs

	case enums.MembershipStatusCancelled, enums.MembershipStatusExpired, enums.MembershipStatusDeceased:
		suspended, err := s.variants.SuspendForMembership(ctx, evt.MembershipID, reason)
		if err != nil {
			return err
		}
		if suspended > 0 {
			s.log.Info(ctx, fmt.Sprintf("suspended %d units for %s", suspended, reason))
		}
		return nil

	case enums.MembershipStatusPending:
		return nil

	default:
		s.log.Warn(ctx, "ignoring unhandled membership status "+evt.Status)
		return nil
	}
}

// HandleContributionCompleted closes orders waiting on the contribution.
func (s *service) HandleContributionCompleted(ctx context.Context, evt ContributionCompletedEvent) error {
	if evt.ContributionID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "contribution_id must be positive")
	}
	ctx = s.log.WithContactID(ctx, evt.ContactID)

	completed, err := s.sales.CompleteForContribution(ctx, evt.ContributionID)
	if err != nil {
		return err
	}
	if completed > 0 {
		s.log.Info(ctx, fmt.Sprintf("completed %d orders for contribution", completed))
	}
	return nil
}
