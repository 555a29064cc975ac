// Package reconcile decides, on every SSO attempt, which LMS account a
// platform user maps to. Email is the primary cross-system join key and
// username the secondary consistency check; the decision procedure is an
// explicit state machine so each transition can be tested in isolation.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coursebridge/internal/lms"
	"coursebridge/internal/store"
	"coursebridge/pkg/domain"
)

// Outcome names the branch a reconciliation converged on.
type Outcome string

const (
	// OutcomeReuse means an existing, trusted LMS account was used as-is.
	OutcomeReuse Outcome = "reuse"
	// OutcomeCreated means a fresh account was created with the platform email.
	OutcomeCreated Outcome = "created"
	// OutcomeCreatedUniquified means a fresh account was created with a
	// uniquified email because the platform email is held by a foreign account.
	OutcomeCreatedUniquified Outcome = "created-uniquified"
)

// Result is a finished reconciliation: the identity to log in as, plus
// which branch produced it.
type Result struct {
	Identity domain.ResolvedIdentity
	Outcome  Outcome
}

// Reconciler resolves platform users to LMS accounts.
type Reconciler struct {
	api          lms.API
	store        store.Store
	passwordSalt string
	now          func() time.Time
}

// New constructs a Reconciler. passwordSalt keys the deterministic password
// scheme for accounts this engine creates.
func New(api lms.API, st store.Store, passwordSalt string) *Reconciler {
	return &Reconciler{
		api:          api,
		store:        st,
		passwordSalt: passwordSalt,
		now:          time.Now,
	}
}

// Resolve runs the decision procedure for one platform user. The lookup
// chain is strictly ordered and short-circuits on the first matching
// branch. A transport failure during lookup propagates rather than falling
// through to creation: treating a network blip as "not found" would mint
// duplicate accounts.
func (r *Reconciler) Resolve(ctx context.Context, user domain.PlatformUser) (Result, error) {
	account, found, err := r.api.LookupUserByEmail(ctx, user.Email)
	if err != nil {
		return Result{}, fmt.Errorf("lookup by email: %w", err)
	}

	if found {
		if user.LMSUsername != "" && account.Username == user.LMSUsername {
			return r.reuse(ctx, user, account)
		}
		// An email match with a username mismatch means "not the same
		// logical account", not "same account, stale username". The foreign
		// account is left untouched and a fresh one is created under a
		// uniquified email.
		slog.Info("lms email held by foreign account, creating uniquified",
			"user_id", user.ID, "foreign_lms_id", account.ID)
		return r.create(ctx, user, true)
	}

	if user.LMSUsername == "" {
		// Never bound and the LMS has no record of the email.
		return r.create(ctx, user, false)
	}

	// A prior creation happened but the email binding is gone (changed out
	// of band). Trust the stored id if it still resolves.
	if user.LMSUserID != 0 {
		byID, ok, err := r.api.LookupUserByID(ctx, user.LMSUserID)
		if err != nil {
			return Result{}, fmt.Errorf("lookup by id: %w", err)
		}
		if ok {
			return r.reuse(ctx, user, byID)
		}
	}

	// Account truly gone; start over with the original email.
	return r.create(ctx, user, false)
}

// reuse refreshes the cached binding from the LMS record and resolves to
// it. LoginEmail is whatever the LMS has on file, which may differ from the
// platform email.
func (r *Reconciler) reuse(ctx context.Context, user domain.PlatformUser, account domain.Account) (Result, error) {
	if err := r.store.SaveLMSBinding(user.ID, account.ID, account.Username, user.LMSPassword); err != nil {
		return Result{}, fmt.Errorf("save binding: %w", err)
	}
	return Result{
		Identity: identityFrom(account),
		Outcome:  OutcomeReuse,
	}, nil
}

func (r *Reconciler) create(ctx context.Context, user domain.PlatformUser, uniquify bool) (Result, error) {
	email := user.Email
	outcome := OutcomeCreated
	if uniquify {
		email = UniquifyEmail(user.Email, r.now())
		outcome = OutcomeCreatedUniquified
	}
	username := DeriveUsername(email)
	password := DerivePassword(r.passwordSalt, user.Email)

	account, err := r.api.CreateUser(ctx, lms.NewUser{
		Username:  username,
		Email:     email,
		FirstName: SanitizeName(user.FirstName, "Student"),
		LastName:  SanitizeName(user.LastName, "User"),
		Password:  password,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create account: %w", err)
	}
	if err := r.store.SaveLMSBinding(user.ID, account.ID, account.Username, password); err != nil {
		return Result{}, fmt.Errorf("save binding: %w", err)
	}
	slog.Info("lms account created",
		"user_id", user.ID, "lms_user_id", account.ID, "outcome", string(outcome))
	return Result{
		Identity: identityFrom(account),
		Outcome:  outcome,
	}, nil
}

func identityFrom(account domain.Account) domain.ResolvedIdentity {
	return domain.ResolvedIdentity{
		LMSUserID:  account.ID,
		Username:   account.Username,
		LoginEmail: account.Email,
		FirstName:  account.FirstName,
		LastName:   account.LastName,
	}
}
