package variants

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/pkg/config"
	"github.com/angelmondragon/memberstock-backend/pkg/db"
	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

// Service exposes serialized-unit operations.
type Service interface {
	CreateVariant(ctx context.Context, input CreateVariantInput) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, variantID uuid.UUID, input UpdateVariantInput) (*VariantDTO, error)
	GetVariant(ctx context.Context, variantID uuid.UUID) (*VariantDTO, error)
	GetAvailableVariants(ctx context.Context, productID uuid.UUID) ([]VariantDTO, error)
	AssignToContact(ctx context.Context, productID uuid.UUID, contactID int64, membershipID *int64, opts AssignOptions) (*VariantDTO, bool, error)
	Suspend(ctx context.Context, variantID uuid.UUID, reason string) error
	Reactivate(ctx context.Context, variantID uuid.UUID, reason string) error
	SuspendForMembership(ctx context.Context, membershipID int64, reason string) (int, error)
	ReactivateForMembership(ctx context.Context, membershipID int64, reason string) (int, error)
	BatchUpdateStatus(ctx context.Context, variantIDs []uuid.UUID, status enums.VariantStatus) (*BatchStatusResult, error)
	Replace(ctx context.Context, oldVariantID uuid.UUID, input ReplaceInput) (*ReplacementDTO, error)
	GetDefectiveReport(ctx context.Context) ([]VariantDTO, error)
	GetExpiringWarranties(ctx context.Context) ([]VariantDTO, error)
	GetContactInventory(ctx context.Context, contactID int64) ([]VariantDTO, error)
	CountContactInventory(ctx context.Context, contactID int64) (int64, error)
	GetChangelog(ctx context.Context, variantID uuid.UUID, limit int) ([]ChangelogEntryDTO, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	products productLoader
	log      *logger.Logger
	cfg      config.InventoryConfig
	now      func() time.Time
}

// NewService constructs a variant service instance.
func NewService(repo *Repository, dbClient *db.Client, products productLoader, log *logger.Logger, cfg config.InventoryConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("variant repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.WarrantyMonths <= 0 {
		cfg.WarrantyMonths = 12
	}
	if cfg.ExpiringWarrantyDays <= 0 {
		cfg.ExpiringWarrantyDays = 30
	}
	if cfg.AssignClaimMaxRetries <= 0 {
		cfg.AssignClaimMaxRetries = 5
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		products: products,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// CreateVariant registers one serialized unit into the product's pool.
func (s *service) CreateVariant(ctx context.Context, input CreateVariantInput) (*VariantDTO, error) {
	input.UniqueID = strings.TrimSpace(input.UniqueID)
	if input.UniqueID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unique_id is required")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsSerialized {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not serialized")
	}

	if _, err := s.repo.FindByUniqueID(ctx, input.UniqueID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "unique_id already exists")
	} else if !IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check unique_id")
	}

	warrantyStart, warrantyEnd := s.warrantyWindow(input.WarrantyStartDate, input.WarrantyEndDate)

	variant := &models.ProductVariant{
		ID:                uuid.New(),
		ProductID:         input.ProductID,
		UniqueID:          input.UniqueID,
		PhoneNumber:       input.PhoneNumber,
		Details:           input.Details,
		Status:            enums.VariantStatusAvailable,
		WarrantyStartDate: warrantyStart,
		WarrantyEndDate:   warrantyEnd,
		IsActive:          true,
		IsPrimary:         input.IsPrimary,
	}

	created, err := s.repo.Create(ctx, variant)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "unique_id already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert variant")
	}
	return NewVariantDTO(created), nil
}

// UpdateVariant applies optional edits to a unit.
func (s *service) UpdateVariant(ctx context.Context, variantID uuid.UUID, input UpdateVariantInput) (*VariantDTO, error) {
	variant, err := s.repo.FindByID(ctx, variantID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}

	if input.PhoneNumber != nil {
		variant.PhoneNumber = input.PhoneNumber
	}
	if input.Details != nil {
		variant.Details = input.Details
	}
	if input.WarrantyStartDate != nil {
		variant.WarrantyStartDate = input.WarrantyStartDate
		if input.WarrantyEndDate == nil && variant.WarrantyEndDate == nil {
			end := input.WarrantyStartDate.AddDate(0, s.cfg.WarrantyMonths, 0)
			variant.WarrantyEndDate = &end
		}
	}
	if input.WarrantyEndDate != nil {
		variant.WarrantyEndDate = input.WarrantyEndDate
	}
	if input.IsPrimary != nil {
		variant.IsPrimary = *input.IsPrimary
	}
	if input.IsProblem != nil {
		variant.IsProblem = *input.IsProblem
	}

	if variant.WarrantyStartDate != nil && variant.WarrantyEndDate != nil &&
		variant.WarrantyEndDate.Before(*variant.WarrantyStartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warranty_end_date precedes warranty_start_date")
	}

	updated, err := s.repo.Update(ctx, variant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update variant")
	}

	if err := s.repo.AppendChangelog(ctx, updated.ID, enums.ChangelogActionUpdate.String(), nil); err != nil {
		s.log.Warn(ctx, "changelog write failed: "+err.Error())
	}
	return NewVariantDTO(updated), nil
}

// GetVariant loads one unit with its product.
func (s *service) GetVariant(ctx context.Context, variantID uuid.UUID) (*VariantDTO, error) {
	variant, err := s.repo.FindByIDWithProduct(ctx, variantID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	return NewVariantDTO(variant), nil
}

// GetAvailableVariants lists the product's claimable pool oldest first.
func (s *service) GetAvailableVariants(ctx context.Context, productID uuid.UUID) ([]VariantDTO, error) {
	rows, err := s.repo.ListAvailable(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available variants")
	}
	return toDTOs(rows), nil
}

// AssignToContact claims the oldest available unit for the contact. The
// claim is a conditional update checked by rows affected, retried with a
// fresh candidate when another claimer wins the race. Pool exhaustion is
// reported as assigned=false with no error.
func (s *service) AssignToContact(ctx context.Context, productID uuid.UUID, contactID int64, membershipID *int64, opts AssignOptions) (*VariantDTO, bool, error) {
	if contactID <= 0 {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "contact_id must be positive")
	}

	warrantyStart := s.now()
	if opts.WarrantyStartDate != nil {
		warrantyStart = *opts.WarrantyStartDate
	}
	warrantyEnd := warrantyStart.AddDate(0, s.cfg.WarrantyMonths, 0)

	for attempt := 0; attempt < s.cfg.AssignClaimMaxRetries; attempt++ {
		candidateID, err := s.repo.OldestAvailableID(ctx, productID)
		if err != nil {
			if IsNotFound(err) {
				return nil, false, nil
			}
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pick claim candidate")
		}

		claimed, err := s.repo.Claim(ctx, candidateID, ClaimFields{
			ContactID:         contactID,
			MembershipID:      membershipID,
			PhoneNumber:       opts.PhoneNumber,
			WarrantyStartDate: warrantyStart,
			WarrantyEndDate:   warrantyEnd,
			IsPrimary:         true,
		})
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim variant")
		}
		if !claimed {
			continue
		}

		if err := s.repo.AppendChangelog(ctx, candidateID, enums.ChangelogActionAssign.String(), nil); err != nil {
			s.log.Warn(ctx, "changelog write failed: "+err.Error())
		}

		variant, err := s.repo.FindByIDWithProduct(ctx, candidateID)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claimed variant")
		}
		return NewVariantDTO(variant), true, nil
	}

	return nil, false, pkgerrors.New(pkgerrors.CodeDependency, "claim contention exhausted retries")
}

// Suspend pauses an assigned unit. The changelog action records the
// lifecycle reason when one is given.
func (s *service) Suspend(ctx context.Context, variantID uuid.UUID, reason string) error {
	return s.transition(ctx, variantID, enums.VariantStatusSuspended, changelogAction(reason, enums.ChangelogActionSuspend), nil)
}

// Reactivate resumes a suspended unit.
func (s *service) Reactivate(ctx context.Context, variantID uuid.UUID, reason string) error {
	return s.transition(ctx, variantID, enums.VariantStatusActive, changelogAction(reason, enums.ChangelogActionReactivate), nil)
}

// SuspendForMembership pauses every active unit held by the membership.
// Returns the number of units suspended.
func (s *service) SuspendForMembership(ctx context.Context, membershipID int64, reason string) (int, error) {
	return s.bulkTransition(ctx, membershipID, enums.VariantStatusSuspended, changelogAction(reason, enums.ChangelogActionSuspend))
}

// ReactivateForMembership resumes the membership's suspended units.
func (s *service) ReactivateForMembership(ctx context.Context, membershipID int64, reason string) (int, error) {
	return s.bulkTransition(ctx, membershipID, enums.VariantStatusActive, changelogAction(reason, enums.ChangelogActionReactivate))
}

// BatchUpdateStatus moves several units to the target status under one
// batch ID, skipping units whose current status disallows the move.
func (s *service) BatchUpdateStatus(ctx context.Context, variantIDs []uuid.UUID, status enums.VariantStatus) (*BatchStatusResult, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if len(variantIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant_ids is required")
	}

	batchID := uuid.New()
	result := &BatchStatusResult{BatchID: batchID}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for _, id := range variantIDs {
			variant, err := txRepo.FindByID(ctx, id)
			if err != nil {
				if IsNotFound(err) {
					result.Skipped = append(result.Skipped, id)
					continue
				}
				return err
			}
			if !variant.Status.CanTransitionTo(status) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			applyStatusFlags(variant, status, s.now())
			if _, err := txRepo.Update(ctx, variant); err != nil {
				return err
			}
			if err := txRepo.AppendChangelog(ctx, id, string(status), &batchID); err != nil {
				return err
			}
			result.Updated = append(result.Updated, id)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "batch status update")
	}
	return result, nil
}

// Replace swaps an assigned unit for a fresh one, inheriting the holder's
// contact, membership and phone number. The incoming unit goes straight to
// active with a fresh warranty window starting now.
func (s *service) Replace(ctx context.Context, oldVariantID uuid.UUID, input ReplaceInput) (*ReplacementDTO, error) {
	oldVariant, err := s.repo.FindByID(ctx, oldVariantID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if oldVariant.ContactID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "variant is not assigned to a contact")
	}
	if !oldVariant.Status.CanTransitionTo(enums.VariantStatusReplaced) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot replace variant in status %s", oldVariant.Status))
	}

	now := s.now()
	warrantyStart := now
	warrantyEnd := now.AddDate(0, s.cfg.WarrantyMonths, 0)

	var replacement models.VariantReplacement
	var newID uuid.UUID

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		newID, err = s.pickReplacement(ctx, txRepo, oldVariant, input.NewVariantID)
		if err != nil {
			return err
		}

		claimed, err := txRepo.Claim(ctx, newID, ClaimFields{
			ContactID:         *oldVariant.ContactID,
			MembershipID:      oldVariant.MembershipID,
			PhoneNumber:       oldVariant.PhoneNumber,
			WarrantyStartDate: warrantyStart,
			WarrantyEndDate:   warrantyEnd,
			IsPrimary:         oldVariant.IsPrimary,
		})
		if err != nil {
			return err
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeConflict, "replacement unit is no longer available")
		}

		newVariant, err := txRepo.FindByID(ctx, newID)
		if err != nil {
			return err
		}
		newVariant.ReplacedVariantID = &oldVariant.ID
		applyStatusFlags(newVariant, enums.VariantStatusActive, now)
		if _, err := txRepo.Update(ctx, newVariant); err != nil {
			return err
		}

		oldVariant.Status = enums.VariantStatusReplaced
		oldVariant.IsReplaced = true
		oldVariant.IsActive = false
		oldVariant.IsPrimary = false
		oldVariant.ReplacedDate = &now
		oldVariant.ReplacedByVariantID = &newID
		if _, err := txRepo.Update(ctx, oldVariant); err != nil {
			return err
		}

		replacement = models.VariantReplacement{
			ID:           uuid.New(),
			ContactID:    *oldVariant.ContactID,
			OldVariantID: oldVariant.ID,
			NewVariantID: newID,
			IsWarranty:   input.IsWarranty,
			Source:       input.Source,
		}
		if err := txRepo.CreateReplacement(ctx, &replacement); err != nil {
			return err
		}

		if err := txRepo.AppendChangelog(ctx, oldVariant.ID, enums.ChangelogActionReplace.String(), nil); err != nil {
			return err
		}
		return txRepo.AppendChangelog(ctx, newID, enums.ChangelogActionAssign.String(), nil)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace variant")
	}

	newVariant, err := s.repo.FindByIDWithProduct(ctx, newID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load replacement variant")
	}

	return &ReplacementDTO{
		ID:           replacement.ID,
		ContactID:    replacement.ContactID,
		OldVariantID: replacement.OldVariantID,
		NewVariantID: replacement.NewVariantID,
		IsWarranty:   replacement.IsWarranty,
		Source:       replacement.Source,
		CreatedAt:    replacement.CreatedAt,
		NewVariant:   NewVariantDTO(newVariant),
	}, nil
}

// GetDefectiveReport lists active units flagged defective or problematic.
func (s *service) GetDefectiveReport(ctx context.Context) ([]VariantDTO, error) {
	rows, err := s.repo.ListProblem(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list problem variants")
	}
	return toDTOs(rows), nil
}

// GetExpiringWarranties lists assigned units whose warranty lapses inside
// the configured window.
func (s *service) GetExpiringWarranties(ctx context.Context) ([]VariantDTO, error) {
	now := s.now()
	rows, err := s.repo.ListExpiringWarranties(ctx, now, now.AddDate(0, 0, s.cfg.ExpiringWarrantyDays))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expiring warranties")
	}
	return toDTOs(rows), nil
}

// GetContactInventory lists a contact's units newest first.
func (s *service) GetContactInventory(ctx context.Context, contactID int64) ([]VariantDTO, error) {
	rows, err := s.repo.ListByContact(ctx, contactID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contact inventory")
	}
	return toDTOs(rows), nil
}

// CountContactInventory counts a contact's units.
func (s *service) CountContactInventory(ctx context.Context, contactID int64) (int64, error) {
	count, err := s.repo.CountByContact(ctx, contactID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count contact inventory")
	}
	return count, nil
}

// GetChangelog returns a unit's audit trail newest first.
func (s *service) GetChangelog(ctx context.Context, variantID uuid.UUID, limit int) ([]ChangelogEntryDTO, error) {
	rows, err := s.repo.ListChangelog(ctx, variantID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list changelog")
	}
	entries := make([]ChangelogEntryDTO, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, ChangelogEntryDTO{
			ID:        row.ID,
			VariantID: row.VariantID,
			Action:    row.Action,
			BatchID:   row.BatchID,
			CreatedAt: row.CreatedAt,
		})
	}
	return entries, nil
}

func (s *service) transition(ctx context.Context, variantID uuid.UUID, target enums.VariantStatus, action string, batchID *uuid.UUID) error {
	variant, err := s.repo.FindByID(ctx, variantID)
	if err != nil {
		if IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if !variant.Status.CanTransitionTo(target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move variant from %s to %s", variant.Status, target))
	}

	applyStatusFlags(variant, target, s.now())
	if _, err := s.repo.Update(ctx, variant); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update variant")
	}
	if err := s.repo.AppendChangelog(ctx, variantID, action, batchID); err != nil {
		s.log.Warn(ctx, "changelog write failed: "+err.Error())
	}
	return nil
}

func (s *service) bulkTransition(ctx context.Context, membershipID int64, target enums.VariantStatus, action string) (int, error) {
	rows, err := s.repo.ListByMembership(ctx, membershipID, true)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list membership variants")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	batchID := uuid.New()
	updated := 0
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for i := range rows {
			variant := &rows[i]
			if !variant.Status.CanTransitionTo(target) {
				continue
			}
			applyStatusFlags(variant, target, s.now())
			if _, err := txRepo.Update(ctx, variant); err != nil {
				return err
			}
			if err := txRepo.AppendChangelog(ctx, variant.ID, action, &batchID); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bulk status update")
	}
	return updated, nil
}

// pickReplacement resolves the incoming unit for a swap: an explicit pool
// member, or the oldest available unit of the same product.
func (s *service) pickReplacement(ctx context.Context, txRepo *Repository, oldVariant *models.ProductVariant, explicit *uuid.UUID) (uuid.UUID, error) {
	if explicit != nil {
		candidate, err := txRepo.FindByID(ctx, *explicit)
		if err != nil {
			if IsNotFound(err) {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "replacement variant not found")
			}
			return uuid.Nil, err
		}
		if candidate.ID == oldVariant.ID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "replacement must differ from the replaced unit")
		}
		return candidate.ID, nil
	}

	candidateID, err := txRepo.OldestAvailableID(ctx, oldVariant.ProductID)
	if err != nil {
		if IsNotFound(err) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeConflict, "no available unit to use as replacement")
		}
		return uuid.Nil, err
	}
	return candidateID, nil
}

func (s *service) warrantyWindow(start, end *time.Time) (*time.Time, *time.Time) {
	if start == nil {
		return nil, end
	}
	if end == nil {
		computed := start.AddDate(0, s.cfg.WarrantyMonths, 0)
		return start, &computed
	}
	return start, end
}

func applyStatusFlags(variant *models.ProductVariant, target enums.VariantStatus, now time.Time) {
	variant.Status = target
	switch target {
	case enums.VariantStatusSuspended:
		variant.IsSuspended = true
	case enums.VariantStatusActive:
		variant.IsSuspended = false
	case enums.VariantStatusDefective:
		variant.IsProblem = true
	case enums.VariantStatusReplaced:
		variant.IsReplaced = true
		variant.IsActive = false
		variant.ReplacedDate = &now
	case enums.VariantStatusSold:
		variant.IsActive = false
	}
}

func changelogAction(reason string, fallback enums.ChangelogAction) string {
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		return trimmed
	}
	return fallback.String()
}

func toDTOs(rows []models.ProductVariant) []VariantDTO {
	dtos := make([]VariantDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewVariantDTO(&rows[i]))
	}
	return dtos
}
