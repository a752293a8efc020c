package tenancy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/activity"
	"github.com/nou-pos/nou/internal/observability"
	"github.com/nou-pos/nou/internal/platform/storage"
	"github.com/nou-pos/nou/internal/shared"
)

// Service resolves the caller's tenant context and manages branches.
type Service struct {
	repo     Repository
	activity activity.Writer
	uploader storage.Uploader
	logger   *slog.Logger
	metrics  *observability.DomainMetrics
}

// NewService constructs a tenancy Service. uploader may be nil when object
// storage is not configured; logo uploads then fail with ErrBackend.
func NewService(repo Repository, writer activity.Writer, uploader storage.Uploader, logger *slog.Logger, metrics *observability.DomainMetrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, activity: writer, uploader: uploader, logger: logger, metrics: metrics}
}

// Profile is the resolved identity returned by /api/me.
type Profile struct {
	User         User         `json:"user"`
	Organization Organization `json:"organization"`
	Branch       *Branch      `json:"branch"`
	Permissions  []string     `json:"permissions,omitempty"`
}

func (s *Service) loadUser(ctx context.Context, userID uuid.UUID) (User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return User{}, fmt.Errorf("tenancy: %w", shared.ErrNoOrganization)
	}
	if err != nil {
		return User{}, err
	}
	if user.OrganizationID == nil || *user.OrganizationID == uuid.Nil {
		return User{}, fmt.Errorf("tenancy: %w", shared.ErrNoOrganization)
	}
	return user, nil
}

// ResolveOrganization returns the organization the user belongs to.
func (s *Service) ResolveOrganization(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return *user.OrganizationID, nil
}

// ResolveDefaultBranch returns the earliest created branch of the organization.
func (s *Service) ResolveDefaultBranch(ctx context.Context, organizationID uuid.UUID) (Branch, error) {
	if organizationID == uuid.Nil {
		return Branch{}, fmt.Errorf("tenancy: %w", shared.ErrNoOrganization)
	}
	branch, err := s.repo.FirstBranch(ctx, organizationID)
	if errors.Is(err, shared.ErrNotFound) {
		return Branch{}, fmt.Errorf("tenancy: %w", shared.ErrNoBranch)
	}
	return branch, err
}

// ResolveScope builds the operating scope for an authenticated principal.
// requested selects a branch explicitly; uuid.Nil falls back to the default.
// Cashier and delivery accounts only reach branches they are linked to.
func (s *Service) ResolveScope(ctx context.Context, principal shared.Principal, requested uuid.UUID) (shared.Scope, error) {
	user, err := s.loadUser(ctx, principal.UserID)
	if err != nil {
		return shared.Scope{}, err
	}
	if user.Status != UserActive {
		return shared.Scope{}, fmt.Errorf("tenancy: %w: account inactive", shared.ErrForbidden)
	}
	orgID := *user.OrganizationID
	restricted := user.Role == shared.RoleCashier || user.Role == shared.RoleDelivery

	var branch Branch
	switch {
	case requested != uuid.Nil:
		branch, err = s.repo.GetBranch(ctx, orgID, requested)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Scope{}, fmt.Errorf("tenancy: %w: branch outside organization", shared.ErrForbidden)
		}
		if err != nil {
			return shared.Scope{}, err
		}
		if restricted {
			linked, err := s.repo.UserHasBranch(ctx, user.ID, branch.ID)
			if err != nil {
				return shared.Scope{}, err
			}
			if !linked {
				return shared.Scope{}, fmt.Errorf("tenancy: %w: branch not assigned", shared.ErrForbidden)
			}
		}
	case restricted:
		branch, err = s.repo.FirstUserBranch(ctx, orgID, user.ID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Scope{}, fmt.Errorf("tenancy: %w", shared.ErrNoBranch)
		}
		if err != nil {
			return shared.Scope{}, err
		}
	default:
		branch, err = s.ResolveDefaultBranch(ctx, orgID)
		if err != nil {
			return shared.Scope{}, err
		}
	}

	return shared.Scope{
		OrganizationID: orgID,
		BranchID:       branch.ID,
		UserID:         user.ID,
		Role:           user.Role,
	}, nil
}

// ResolveOrganizationScope behaves like ResolveScope but tolerates an
// organization without a reachable branch: the scope then carries
// uuid.Nil as BranchID. Onboarding routes run under it so the first
// branch can be created.
func (s *Service) ResolveOrganizationScope(ctx context.Context, principal shared.Principal, requested uuid.UUID) (shared.Scope, error) {
	scope, err := s.ResolveScope(ctx, principal, requested)
	if !errors.Is(err, shared.ErrNoBranch) {
		return scope, err
	}
	user, err := s.loadUser(ctx, principal.UserID)
	if err != nil {
		return shared.Scope{}, err
	}
	return shared.Scope{
		OrganizationID: *user.OrganizationID,
		UserID:         user.ID,
		Role:           user.Role,
	}, nil
}

// Me returns the caller's profile. Branch is nil while the organization
// is still onboarding.
func (s *Service) Me(ctx context.Context, scope shared.Scope) (Profile, error) {
	if scope.OrganizationID == uuid.Nil {
		return Profile{}, fmt.Errorf("tenancy: %w", shared.ErrNoOrganization)
	}
	user, err := s.repo.GetUser(ctx, scope.UserID)
	if err != nil {
		return Profile{}, err
	}
	org, err := s.repo.GetOrganization(ctx, scope.OrganizationID)
	if err != nil {
		return Profile{}, err
	}
	profile := Profile{User: user, Organization: org}
	if scope.BranchID != uuid.Nil {
		branch, err := s.repo.GetBranch(ctx, scope.OrganizationID, scope.BranchID)
		if err != nil {
			return Profile{}, err
		}
		profile.Branch = &branch
	}
	return profile, nil
}

// ListBranches returns every branch of the scoped organization.
func (s *Service) ListBranches(ctx context.Context, scope shared.Scope) ([]Branch, error) {
	if scope.OrganizationID == uuid.Nil {
		return nil, fmt.Errorf("tenancy: %w", shared.ErrNoOrganization)
	}
	return s.repo.ListBranches(ctx, scope.OrganizationID)
}

// CreateBranch adds a branch while honouring the organization's plan cap.
func (s *Service) CreateBranch(ctx context.Context, scope shared.Scope, in CreateBranchInput) (Branch, error) {
	if scope.OrganizationID == uuid.Nil {
		return Branch{}, fmt.Errorf("tenancy: %w", shared.ErrNoOrganization)
	}
	if err := in.Validate(); err != nil {
		return Branch{}, err
	}
	org, err := s.repo.GetOrganization(ctx, scope.OrganizationID)
	if err != nil {
		return Branch{}, err
	}
	count, err := s.repo.CountBranches(ctx, org.ID)
	if err != nil {
		return Branch{}, err
	}
	if org.MaxBranches > 0 && count >= org.MaxBranches {
		return Branch{}, ErrBranchLimit
	}
	branch, err := s.repo.InsertBranch(ctx, Branch{
		OrganizationID:   org.ID,
		Name:             in.Name,
		TaxID:            in.TaxID,
		Address:          in.Address,
		Phone:            in.Phone,
		IsVATResponsible: in.IsVATResponsible,
	})
	if err != nil {
		return Branch{}, err
	}

	entry := activity.UserEntry(org.ID, branch.ID, scope.UserID)
	entry.Action = activity.ActionBranchCreated
	entry.EntityType = "branch"
	entry.EntityID = branch.ID.String()
	entry.Summary = fmt.Sprintf("Sucursal %s creada", branch.Name)
	activity.RecordBestEffort(ctx, s.activity, s.logger, s.metrics, entry)
	return branch, nil
}

// UploadLogo stores a branch logo and persists its public URL.
func (s *Service) UploadLogo(ctx context.Context, scope shared.Scope, branchID uuid.UUID, contentType string, body io.Reader, size int64) (Branch, error) {
	if scope.OrganizationID == uuid.Nil {
		return Branch{}, fmt.Errorf("tenancy: %w", shared.ErrNoOrganization)
	}
	if size <= 0 || size > storage.MaxLogoSize {
		return Branch{}, fmt.Errorf("tenancy: %w: logo must be between 1 byte and 2MB", shared.ErrValidation)
	}
	key, ok := storage.LogoKey(scope.OrganizationID.String(), branchID.String(), contentType)
	if !ok {
		return Branch{}, fmt.Errorf("tenancy: %w: unsupported logo type %q", shared.ErrValidation, contentType)
	}
	branch, err := s.repo.GetBranch(ctx, scope.OrganizationID, branchID)
	if err != nil {
		return Branch{}, err
	}
	if s.uploader == nil {
		return Branch{}, fmt.Errorf("tenancy: %w: object storage not configured", shared.ErrBackend)
	}
	url, err := s.uploader.Upload(ctx, key, contentType, body, size)
	if err != nil {
		return Branch{}, fmt.Errorf("tenancy: %w: %v", shared.ErrBackend, err)
	}
	if err := s.repo.UpdateBranchLogo(ctx, scope.OrganizationID, branchID, url); err != nil {
		return Branch{}, err
	}
	branch.LogoURL = url

	entry := activity.UserEntry(scope.OrganizationID, branchID, scope.UserID)
	entry.Action = activity.ActionBranchLogoUpdated
	entry.EntityType = "branch"
	entry.EntityID = branchID.String()
	entry.Metadata = map[string]any{"url": url}
	activity.RecordBestEffort(ctx, s.activity, s.logger, s.metrics, entry)
	return branch, nil
}
