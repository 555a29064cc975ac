package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"coursebridge/internal/lms"
	"coursebridge/internal/lms/lmstest"
	"coursebridge/internal/store"
	"coursebridge/pkg/domain"
)

const testSalt = "test-salt"

func seedStore(t *testing.T, user domain.PlatformUser) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	st.SeedUser(user)
	return st
}

func TestResolveCreatesWithOriginalEmailWhenUnbound(t *testing.T) {
	user := domain.PlatformUser{ID: "u1", Email: "a@x.com", FirstName: "Ana", LastName: "Diaz"}
	st := seedStore(t, user)
	fake := &lmstest.Fake{}
	r := New(fake, st, testSalt)

	result, err := r.Resolve(context.Background(), user)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want %s", result.Outcome, OutcomeCreated)
	}
	if len(fake.CreateCalls) != 1 {
		t.Fatalf("expected exactly one create call, got %d", len(fake.CreateCalls))
	}
	if got := fake.CreateCalls[0].Email; got != "a@x.com" {
		t.Fatalf("create email = %q, want unmodified platform email", got)
	}

	stored, _, _ := st.GetPlatformUser("u1")
	if stored.LMSUserID == 0 || stored.LMSUsername == "" || stored.LMSPassword == "" {
		t.Fatalf("binding not persisted: %+v", stored)
	}
	if result.Identity.LoginEmail != "a@x.com" {
		t.Fatalf("login email = %q", result.Identity.LoginEmail)
	}
}

func TestResolveReusesOwnAccountOnSecondAttempt(t *testing.T) {
	user := domain.PlatformUser{ID: "u1", Email: "a@x.com", FirstName: "Ana", LastName: "Diaz"}
	st := seedStore(t, user)

	accounts := map[string]domain.Account{}
	fake := &lmstest.Fake{}
	fake.CreateUserFn = func(in lms.NewUser) (domain.Account, error) {
		account := domain.Account{ID: 11, Username: in.Username, Email: in.Email, FirstName: in.FirstName, LastName: in.LastName}
		accounts[in.Email] = account
		return account, nil
	}
	fake.LookupByEmailFn = func(email string) (domain.Account, bool, error) {
		account, ok := accounts[email]
		return account, ok, nil
	}
	r := New(fake, st, testSalt)

	first, err := r.Resolve(context.Background(), user)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	updated, _, _ := st.GetPlatformUser("u1")
	second, err := r.Resolve(context.Background(), updated)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.Outcome != OutcomeReuse {
		t.Fatalf("second outcome = %s, want %s", second.Outcome, OutcomeReuse)
	}
	if second.Identity.LMSUserID != first.Identity.LMSUserID {
		t.Fatalf("second attempt bound a different account: %d != %d",
			second.Identity.LMSUserID, first.Identity.LMSUserID)
	}
	if len(fake.CreateCalls) != 1 {
		t.Fatalf("expected one total create, got %d", len(fake.CreateCalls))
	}
}

func TestResolveUsernameMismatchCreatesUniquified(t *testing.T) {
	user := domain.PlatformUser{ID: "u1", Email: "a@x.com", LMSUsername: "bob", FirstName: "Ana", LastName: "Diaz"}
	st := seedStore(t, user)

	foreign := domain.Account{ID: 77, Username: "carol", Email: "a@x.com"}
	fake := &lmstest.Fake{}
	fake.LookupByEmailFn = func(string) (domain.Account, bool, error) {
		return foreign, true, nil
	}
	r := New(fake, st, testSalt)

	result, err := r.Resolve(context.Background(), user)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Outcome != OutcomeCreatedUniquified {
		t.Fatalf("outcome = %s, want %s", result.Outcome, OutcomeCreatedUniquified)
	}
	if len(fake.CreateCalls) != 1 {
		t.Fatalf("expected one create, got %d", len(fake.CreateCalls))
	}
	created := fake.CreateCalls[0]
	if created.Email == "a@x.com" {
		t.Fatal("create must use a uniquified email, not the platform email")
	}
	if !strings.HasPrefix(created.Email, "a+") || !strings.HasSuffix(created.Email, "@x.com") {
		t.Fatalf("uniquified email %q not derived from a@x.com", created.Email)
	}
	if result.Identity.LMSUserID == foreign.ID {
		t.Fatal("foreign account must never be referenced")
	}
	if result.Identity.LoginEmail != created.Email {
		t.Fatalf("login email = %q, want the LMS-stored email %q", result.Identity.LoginEmail, created.Email)
	}
}

func TestResolveRepairsByStoredID(t *testing.T) {
	user := domain.PlatformUser{ID: "u1", Email: "a@x.com", LMSUserID: 33, LMSUsername: "alice", FirstName: "Ana", LastName: "Diaz"}
	st := seedStore(t, user)

	fake := &lmstest.Fake{}
	fake.LookupByIDFn = func(id int64) (domain.Account, bool, error) {
		if id != 33 {
			t.Fatalf("lookup id = %d, want 33", id)
		}
		return domain.Account{ID: 33, Username: "alice", Email: "renamed@x.com"}, true, nil
	}
	r := New(fake, st, testSalt)

	result, err := r.Resolve(context.Background(), user)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Outcome != OutcomeReuse {
		t.Fatalf("outcome = %s, want %s", result.Outcome, OutcomeReuse)
	}
	if result.Identity.LoginEmail != "renamed@x.com" {
		t.Fatalf("login email must refresh from the LMS record, got %q", result.Identity.LoginEmail)
	}
	if len(fake.CreateCalls) != 0 {
		t.Fatal("no account should be created")
	}
}

func TestResolveAccountGoneCreatesWithOriginalEmail(t *testing.T) {
	user := domain.PlatformUser{ID: "u1", Email: "a@x.com", LMSUserID: 33, LMSUsername: "alice", FirstName: "Ana", LastName: "Diaz"}
	st := seedStore(t, user)
	fake := &lmstest.Fake{} // every lookup misses
	r := New(fake, st, testSalt)

	result, err := r.Resolve(context.Background(), user)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want %s", result.Outcome, OutcomeCreated)
	}
	if got := fake.CreateCalls[0].Email; got != "a@x.com" {
		t.Fatalf("create email = %q, want original", got)
	}
}

func TestResolveTransportErrorDoesNotFallThroughToCreate(t *testing.T) {
	user := domain.PlatformUser{ID: "u1", Email: "a@x.com"}
	st := seedStore(t, user)

	fake := &lmstest.Fake{}
	fake.LookupByEmailFn = func(string) (domain.Account, bool, error) {
		return domain.Account{}, false, &lms.TransportError{Op: "core_user_get_users", Err: errors.New("timeout")}
	}
	r := New(fake, st, testSalt)

	_, err := r.Resolve(context.Background(), user)
	var transport *lms.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected transport error to propagate, got: %v", err)
	}
	if len(fake.CreateCalls) != 0 {
		t.Fatal("a transient lookup failure must never mint a new account")
	}
}

func TestResolveSanitizesNames(t *testing.T) {
	user := domain.PlatformUser{ID: "u1", Email: "a@x.com", FirstName: "<b>Ana</b>", LastName: "Di\x00az"}
	st := seedStore(t, user)
	fake := &lmstest.Fake{}
	r := New(fake, st, testSalt)
	r.now = func() time.Time { return time.Unix(1700000000, 0) }

	if _, err := r.Resolve(context.Background(), user); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	created := fake.CreateCalls[0]
	if strings.ContainsAny(created.FirstName, "<>") {
		t.Fatalf("markup kept in first name: %q", created.FirstName)
	}
	if created.LastName != "Diaz" {
		t.Fatalf("control character kept: %q", created.LastName)
	}
}
