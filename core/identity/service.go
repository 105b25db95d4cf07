package identity

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/vintech/portal/core"
)

var (
	// errors
	ErrNotFound = errors.New("identity not found")

	// ErrNotProvisioned marks a principal whose auth credential exists but
	// whose identity row is missing. Branch-scoped screens must treat this
	// as "no access", never as unrestricted visibility.
	ErrNotProvisioned = errors.New("account has no provisioned identity")
)

// OrphanedCredentialError is returned when step one of provisioning (the
// backend auth credential) succeeded but step two (the identity row) failed.
// There is no rollback; the state is recoverable by re-running provisioning
// for the same email.
type OrphanedCredentialError struct {
	Email string
	Err   error
}

func (e *OrphanedCredentialError) Error() string {
	return fmt.Sprintf("auth credential created for %s but identity row is missing: %v", e.Email, e.Err)
}

func (e *OrphanedCredentialError) Unwrap() error { return e.Err }

type (
	// Principal is the backend auth service's view of an account.
	Principal struct {
		ID    string
		Email string
		Name  string
	}

	Repository interface {
		GetIdentity(ctx context.Context, id string) (Identity, error)
		GetIdentityByEmail(ctx context.Context, email string) (Identity, error)
		QueryIdentities(ctx context.Context) ([]Identity, error)
		// QueryIdentitiesByRole returns identities holding the given role.
		QueryIdentitiesByRole(ctx context.Context, role string) ([]Identity, error)
		CreateIdentity(ctx context.Context, ident Identity) (Identity, error)
	}

	// Authenticator is the backend auth sub-service: password sign-in and
	// privileged credential creation.
	Authenticator interface {
		SignIn(ctx context.Context, email, password string) (Principal, error)
		CreateCredential(ctx context.Context, email, password, name string) (Principal, error)
	}

	Service struct {
		repo    Repository
		auth    Authenticator
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, auth Authenticator, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		auth:    auth,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// Login delegates the credential check to the backend auth service, then
// loads the principal's identity row. A principal without an identity row is
// rejected (fail closed) with ErrNotProvisioned.
func (svc *Service) Login(ctx context.Context, email, password string) (Identity, error) {
	p, err := svc.auth.SignIn(ctx, email, password)
	if err != nil {
		return Identity{}, err
	}

	ident, err := svc.repo.GetIdentity(ctx, p.ID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Identity{}, ErrNotProvisioned
		}
		return Identity{}, errors.Wrap(err, "fetching identity row")
	}

	if ident.Email == "" {
		ident.Email = p.Email
	}
	if ident.Name == "" {
		ident.Name = p.Name
	}
	return ident, nil
}

// GetByID re-fetches an Identity on demand.
func (svc *Service) GetByID(ctx context.Context, id string) (Identity, error) {
	return svc.repo.GetIdentity(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Identity, error) {
	return svc.repo.QueryIdentities(ctx)
}

func (svc *Service) QueryByRole(ctx context.Context, role string) ([]Identity, error) {
	return svc.repo.QueryIdentitiesByRole(ctx, core.CleanString(role, true /* lower */))
}

// Provision creates a backend auth credential and its identity row, in that
// order. The two steps are not transactional: when the identity insert fails
// the credential stays behind and an *OrphanedCredentialError is returned so
// callers can surface the recoverable state.
func (svc *Service) Provision(ctx context.Context, ni NewIdentity) (Identity, error) {
	if _, err := svc.repo.GetIdentityByEmail(ctx, ni.Email); err == nil {
		return Identity{}, core.NewValidationError(
			errors.New("an identity with this email already exists"),
			core.FieldError{Field: "email", Error: "an identity with this email already exists"},
		)
	} else if errors.Cause(err) != ErrNotFound {
		return Identity{}, errors.Wrap(err, "checking email uniqueness")
	}

	p, err := svc.auth.CreateCredential(ctx, ni.Email, ni.Password, ni.Name)
	if err != nil {
		return Identity{}, errors.Wrap(err, "creating auth credential")
	}

	ident := Identity{
		ID:     p.ID,
		Email:  ni.Email,
		Name:   ni.Name,
		Role:   ni.Role,
		Branch: ni.Branch,
	}
	ident, err = svc.repo.CreateIdentity(ctx, ident)
	if err != nil {
		return Identity{}, &OrphanedCredentialError{Email: ni.Email, Err: err}
	}

	svc.sendCredentialsMail(ident)
	return ident, nil
}

func (svc *Service) sendCredentialsMail(ident Identity) {
	if svc.mailSvc == nil {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nAn account has been created for you on %s.\n\n"+
			"Email: %s\nRole: %s\nBranch: %s\n\n"+
			"Sign in at %s and change your password.\n",
		ident.Name, svc.conf.AppName, ident.Email, ident.Role, ident.Branch, svc.conf.FrontendBaseURL,
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: ident.Name, Address: ident.Email}},
		Subject: "Your account",
		BodyStr: body,
	})
}
