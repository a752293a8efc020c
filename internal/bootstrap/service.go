package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/activity"
	"github.com/nou-pos/nou/internal/auth"
	"github.com/nou-pos/nou/internal/observability"
	"github.com/nou-pos/nou/internal/shared"
	"github.com/nou-pos/nou/internal/tenancy"
)

// Service implements the elevated account endpoints.
type Service struct {
	repo     Repository
	activity activity.Writer
	logger   *slog.Logger
	metrics  *observability.DomainMetrics
	hash     func(string) (string, error)
	now      func() time.Time
}

// NewService constructs the bootstrap service.
func NewService(repo Repository, writer activity.Writer, logger *slog.Logger, metrics *observability.DomainMetrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		activity: writer,
		logger:   logger,
		metrics:  metrics,
		hash:     auth.HashPassword,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateUser registers an identity. Attaching it to an organization needs
// either the bootstrap secret or an owner/admin of that organization.
func (s *Service) CreateUser(ctx context.Context, caller Caller, in CreateUserInput) (CreatedUser, error) {
	in.Email = auth.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return CreatedUser{}, fmt.Errorf("bootstrap: %w: valid email required", shared.ErrValidation)
	}
	if len(in.Password) < 8 {
		return CreatedUser{}, fmt.Errorf("bootstrap: %w: password must have at least 8 characters", shared.ErrValidation)
	}
	if in.Name == "" {
		return CreatedUser{}, fmt.Errorf("bootstrap: %w: name required", shared.ErrValidation)
	}

	var member *Membership
	if in.OrganizationID != nil && *in.OrganizationID != uuid.Nil {
		if in.Role == "" {
			in.Role = shared.RoleCashier
		}
		if !in.Role.Valid() {
			return CreatedUser{}, fmt.Errorf("bootstrap: %w: unknown role %q", shared.ErrValidation, in.Role)
		}
		if err := s.authorizeMember(ctx, caller, *in.OrganizationID, in.Role); err != nil {
			return CreatedUser{}, err
		}
		member = &Membership{OrganizationID: *in.OrganizationID, Role: in.Role, BranchIDs: in.BranchIDs}
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return CreatedUser{}, err
	}
	acct := NewAccount{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Member:       member,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, acct); err != nil {
		return CreatedUser{}, err
	}

	out := CreatedUser{ID: acct.ID, Email: acct.Email, Name: acct.Name}
	if member != nil {
		out.OrganizationID = &member.OrganizationID
		out.Role = member.Role
		entry := activity.Entry{
			OrganizationID: member.OrganizationID,
			Action:         activity.ActionUserCreated,
			EntityType:     "user",
			EntityID:       acct.ID.String(),
			Summary:        fmt.Sprintf("Usuario %s creado (%s)", acct.Email, member.Role),
			Metadata:       map[string]any{"role": string(member.Role)},
		}
		if caller.Principal != nil {
			actor := caller.Principal.UserID
			entry.UserID = &actor
		}
		activity.RecordBestEffort(ctx, s.activity, s.logger, s.metrics, entry)
	}
	return out, nil
}

func (s *Service) authorizeMember(ctx context.Context, caller Caller, organizationID uuid.UUID, role shared.Role) error {
	if caller.SecretOK {
		return nil
	}
	if caller.Principal == nil {
		return fmt.Errorf("bootstrap: %w: bootstrap secret or admin token required", shared.ErrUnauthorized)
	}
	callerRole, ok, err := s.repo.MemberRole(ctx, caller.Principal.UserID, organizationID)
	if err != nil {
		return err
	}
	if !ok || (callerRole != shared.RoleOwner && callerRole != shared.RoleAdmin) {
		return fmt.Errorf("bootstrap: %w: caller cannot manage this organization", shared.ErrForbidden)
	}
	if role == shared.RoleOwner && callerRole != shared.RoleOwner {
		return fmt.Errorf("bootstrap: %w: only owners can create owners", shared.ErrForbidden)
	}
	return nil
}

// CreateOrganization creates a tenant and makes the caller its owner. The
// asserted email must match the verified token.
func (s *Service) CreateOrganization(ctx context.Context, principal shared.Principal, in CreateOrganizationInput) (CreatedOrganization, error) {
	if principal.UserID == uuid.Nil {
		return CreatedOrganization{}, fmt.Errorf("bootstrap: %w", shared.ErrUnauthorized)
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = auth.NormalizeEmail(in.Email)
	if in.Name == "" {
		return CreatedOrganization{}, fmt.Errorf("bootstrap: %w: organization name required", shared.ErrValidation)
	}
	if in.Email == "" || in.Email != auth.NormalizeEmail(principal.Email) {
		return CreatedOrganization{}, fmt.Errorf("bootstrap: %w: email does not match the signed-in identity", shared.ErrForbidden)
	}
	existing, err := s.repo.UserOrganization(ctx, principal.UserID)
	if err != nil {
		return CreatedOrganization{}, err
	}
	if existing != nil {
		return CreatedOrganization{}, fmt.Errorf("bootstrap: %w: user already belongs to an organization", shared.ErrDuplicate)
	}

	if in.Plan == "" {
		in.Plan = tenancy.PlanFree
	}
	maxBranches, maxUsers := in.Plan.Limits()
	org := tenancy.Organization{
		ID:          uuid.New(),
		Name:        in.Name,
		Plan:        in.Plan,
		MaxBranches: maxBranches,
		MaxUsers:    maxUsers,
		CreatedAt:   s.now().UTC(),
	}
	owner := tenancy.User{
		ID:             principal.UserID,
		OrganizationID: &org.ID,
		Email:          in.Email,
		Name:           strings.SplitN(in.Email, "@", 2)[0],
		Role:           shared.RoleOwner,
		Status:         tenancy.UserActive,
	}
	if err := s.repo.CreateOrganization(ctx, org, owner); err != nil {
		return CreatedOrganization{}, err
	}

	actor := principal.UserID
	activity.RecordBestEffort(ctx, s.activity, s.logger, s.metrics, activity.Entry{
		OrganizationID: org.ID,
		UserID:         &actor,
		Action:         activity.ActionOrganizationSetup,
		EntityType:     "organization",
		EntityID:       org.ID.String(),
		Summary:        fmt.Sprintf("Organización %s creada", org.Name),
		Metadata:       map[string]any{"plan": string(org.Plan)},
	})
	return CreatedOrganization{Organization: org, Owner: owner}, nil
}
