// Package app wires the SSO flow: rate limit, identity reconciliation,
// enrollment, and the login artifact handoff.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"coursebridge/internal/enroll"
	"coursebridge/internal/lms"
	"coursebridge/internal/ratelimit"
	"coursebridge/internal/reconcile"
	"coursebridge/internal/ssotoken"
	"coursebridge/internal/store"
	"coursebridge/pkg/domain"
)

// Config holds the collaborators the app needs.
type Config struct {
	Store       store.Store
	Reconciler  *reconcile.Reconciler
	Coordinator *enroll.Coordinator
	Minter      ssotoken.Minter
	Limiter     *ratelimit.CounterStore
}

// App is the request-facing core: one SSO attempt in, one login URL out.
type App struct {
	store       store.Store
	reconciler  *reconcile.Reconciler
	coordinator *enroll.Coordinator
	minter      ssotoken.Minter
	limiter     *ratelimit.CounterStore
}

// New constructs the app.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil || cfg.Reconciler == nil || cfg.Coordinator == nil || cfg.Minter == nil {
		return nil, errors.New("store, reconciler, coordinator, and minter are required")
	}
	return &App{
		store:       cfg.Store,
		reconciler:  cfg.Reconciler,
		coordinator: cfg.Coordinator,
		minter:      cfg.Minter,
		limiter:     cfg.Limiter,
	}, nil
}

// SSOResult is a completed single-sign-on attempt.
type SSOResult struct {
	Identity   domain.ResolvedIdentity `json:"identity"`
	Enrollment domain.Enrollment       `json:"enrollment"`
	LoginURL   string                  `json:"loginUrl"`
	Outcome    reconcile.Outcome       `json:"outcome"`
}

// SSO resolves the user's LMS identity, ensures enrollment in the course,
// and mints the login URL. Failures come back as *SSOError so the caller
// can show the right message without seeing raw LMS faults.
func (a *App) SSO(ctx context.Context, userID string, lmsCourseID int64) (SSOResult, error) {
	if !a.limiter.Allow(userID) {
		return SSOResult{}, ssoErr(CategoryTooManyAttempts, nil)
	}
	if userID == "" || lmsCourseID <= 0 {
		return SSOResult{}, ssoErr(CategoryInvalidParameter, errors.New("userId and courseId are required"))
	}

	user, ok, err := a.store.GetPlatformUser(userID)
	if err != nil {
		return SSOResult{}, ssoErr(CategoryUnavailable, fmt.Errorf("fetch user: %w", err))
	}
	if !ok {
		return SSOResult{}, ssoErr(CategoryAccountNotFound, nil)
	}

	result, err := a.reconciler.Resolve(ctx, user)
	if err != nil {
		return SSOResult{}, ssoErr(classifyResolveErr(err), err)
	}

	enrollment, err := a.coordinator.Ensure(ctx, user.ID, result.Identity, lmsCourseID)
	if err != nil {
		if errors.Is(err, enroll.ErrCourseNotFound) {
			return SSOResult{}, ssoErr(CategoryCourseNotFound, err)
		}
		return SSOResult{}, ssoErr(CategoryEnrollmentFailed, err)
	}

	loginURL, err := a.minter.LoginURL(result.Identity)
	if err != nil {
		return SSOResult{}, ssoErr(CategoryUnavailable, fmt.Errorf("mint login url: %w", err))
	}

	slog.Info("sso completed",
		"user_id", user.ID, "lms_user_id", result.Identity.LMSUserID,
		"lms_course_id", lmsCourseID, "outcome", string(result.Outcome))
	return SSOResult{
		Identity:   result.Identity,
		Enrollment: enrollment,
		LoginURL:   loginURL,
		Outcome:    result.Outcome,
	}, nil
}

// classifyResolveErr maps reconciliation failures to user-facing
// categories. The reconciler only surfaces a RemoteFault from account
// creation; lookup-stage not-found faults are normalized away below it.
func classifyResolveErr(err error) Category {
	var validation *lms.ValidationError
	if errors.As(err, &validation) {
		return CategoryInvalidParameter
	}
	var fault *lms.RemoteFault
	if errors.As(err, &fault) {
		return CategoryAccountCreationFailed
	}
	return CategoryUnavailable
}
