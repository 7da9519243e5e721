package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "tabung/internal/errors"
	"tabung/internal/models"
)

// linkResolver resolves tenant/organizer relationships from the approval
// request stores.
type linkResolver struct {
	db *gorm.DB
}

// NewOrganizerResolver creates an OrganizerResolver backed by location and
// organizer-link requests.
func NewOrganizerResolver(db *gorm.DB) OrganizerResolver {
	return &linkResolver{db: db}
}

// ResolveOrganizerForTenant returns the organizer of the tenant's most recent
// active location, falling back to the most recently approved organizer link.
func (r *linkResolver) ResolveOrganizerForTenant(tenantID string) (string, error) {
	if err := requireUserWithRole(r.db, tenantID, models.RoleTenant, apperrors.ErrTenantNotFound); err != nil {
		return "", err
	}

	organizerID, err := r.activeLocationOrganizer(tenantID)
	if err != nil {
		return "", err
	}
	if organizerID == "" {
		organizerID, err = r.approvedLinkOrganizer(tenantID)
		if err != nil {
			return "", err
		}
	}
	if organizerID == "" {
		return "", apperrors.ErrOrganizerUnresolved
	}

	if err := requireUserWithRole(r.db, organizerID, models.RoleOrganizer, apperrors.ErrOrganizerNotFound); err != nil {
		return "", err
	}
	return organizerID, nil
}

func (r *linkResolver) activeLocationOrganizer(tenantID string) (string, error) {
	var loc models.LocationRequest
	err := r.db.Where("tenant_id = ? AND is_active = ? AND status IN ?",
		tenantID, true, []models.Status{models.StatusApproved, models.StatusActive}).
		Order("updated_at DESC").
		First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return loc.OrganizerID, nil
}

func (r *linkResolver) approvedLinkOrganizer(tenantID string) (string, error) {
	var link models.OrganizerLinkRequest
	err := r.db.Where("tenant_id = ? AND status = ?", tenantID, models.StatusApproved).
		Order("approved_at DESC").
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return link.OrganizerID, nil
}

// LinkedTenantIDs returns the tenants that currently resolve to organizerID.
// A tenant with an older link to the organizer but an active location
// elsewhere is not included.
func (r *linkResolver) LinkedTenantIDs(organizerID string) ([]string, error) {
	var fromLocations []string
	if err := r.db.Model(&models.LocationRequest{}).
		Where("organizer_id = ? AND is_active = ? AND status IN ?",
			organizerID, true, []models.Status{models.StatusApproved, models.StatusActive}).
		Distinct("tenant_id").
		Pluck("tenant_id", &fromLocations).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var fromLinks []string
	if err := r.db.Model(&models.OrganizerLinkRequest{}).
		Where("organizer_id = ? AND status = ?", organizerID, models.StatusApproved).
		Distinct("tenant_id").
		Pluck("tenant_id", &fromLinks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	seen := make(map[string]bool, len(fromLocations)+len(fromLinks))
	tenants := make([]string, 0, len(fromLocations)+len(fromLinks))
	for _, id := range append(fromLocations, fromLinks...) {
		if seen[id] {
			continue
		}
		seen[id] = true

		resolved, err := r.ResolveOrganizerForTenant(id)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.StatusCode < 500 {
				continue
			}
			return nil, err
		}
		if resolved == organizerID {
			tenants = append(tenants, id)
		}
	}
	return tenants, nil
}

// requireUserWithRole returns notFound unless id is an active user with role.
func requireUserWithRole(db *gorm.DB, id string, role models.Role, notFound *apperrors.AppError) error {
	var count int64
	if err := db.Model(&models.User{}).
		Where("id = ? AND role = ? AND is_active = ?", id, role, true).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return notFound
	}
	return nil
}

// userPlanResolver reads the plan tier stored on the account's user row.
type userPlanResolver struct {
	db *gorm.DB
}

// NewPlanResolver creates a PlanResolver backed by users.plan_tier.
func NewPlanResolver(db *gorm.DB) PlanResolver {
	return &userPlanResolver{db: db}
}

// ResolvePlanTier returns the raw plan tier of accountID.
func (r *userPlanResolver) ResolvePlanTier(accountID string) (string, error) {
	var user models.User
	if err := r.db.Select("id", "plan_tier").Where("id = ?", accountID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user.PlanTier, nil
}
