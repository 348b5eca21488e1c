package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/userhub/identity-service/internal/core/domain"
	"github.com/userhub/identity-service/internal/core/ports"
)

type fixture struct {
	users  *stubUserRepo
	roles  *stubRoleRepo
	tokens *stubTokens
	svc    *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  newStubUserRepo(),
		roles:  newStubRoleRepo(),
		tokens: newStubTokens(),
	}
	f.svc = NewAccountService(f.users, f.roles, f.tokens, bcrypt.MinCost, zerolog.Nop())
	return f
}

func (f *fixture) register(t *testing.T, username, password, email string) *domain.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Username: username, Password1: password, Password2: password, Email: email,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func (f *fixture) login(t *testing.T, username, password string) string {
	t.Helper()
	res, err := f.svc.Login(context.Background(), username, password)
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return res.Token.AccessToken
}

// adminToken seeds an administrator and returns a live token for it.
func (f *fixture) adminToken(t *testing.T) string {
	t.Helper()
	if err := Seed(context.Background(), f.roles, f.users, SeedOptions{HashCost: bcrypt.MinCost}, zerolog.Nop()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return f.login(t, AdminUsername, "admin")
}

func TestAccountService_Register_ValidationOrder(t *testing.T) {
	f := newFixture(t)
	f.register(t, "taken", "p", "taken@test.com")

	cases := []struct {
		name string
		in   ports.RegisterInput
		want error
	}{
		{"blank username", ports.RegisterInput{Password1: "", Password2: "x", Email: "bad"}, domain.ErrBlankUsername},
		{"blank password", ports.RegisterInput{Username: "t", Password2: "x", Email: "bad"}, domain.ErrBlankPassword},
		{"mismatch", ports.RegisterInput{Username: "t", Password1: "p1", Password2: "p2", Email: "bad"}, domain.ErrPasswordsMismatch},
		{"bad email", ports.RegisterInput{Username: "t", Password1: "p", Password2: "p", Email: "bad-email"}, domain.ErrInvalidEmail},
		{"duplicate email before duplicate username", ports.RegisterInput{Username: "taken", Password1: "p", Password2: "p", Email: "taken@test.com"}, domain.ErrEmailTaken},
		{"duplicate username", ports.RegisterInput{Username: "taken", Password1: "p", Password2: "p", Email: "other@test.com"}, domain.ErrUsernameTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if f.users.count() != 1 {
		t.Fatalf("failed registrations must not store users, have %d", f.users.count())
	}
}

func TestAccountService_Register_Success(t *testing.T) {
	f := newFixture(t)

	u := f.register(t, "t", "p", "t@test.com")
	if u.PasswordHash == "p" {
		t.Fatalf("password must be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("p")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if u.RoleID != domain.UserRoleID || u.Language != domain.LanguageEN {
		t.Fatalf("unexpected defaults: %+v", u)
	}
}

func TestAccountService_Register_LenientLanguage(t *testing.T) {
	f := newFixture(t)

	pl, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Username: "pl", Password1: "p", Password2: "p", Email: "pl@test.com", Language: "PL",
	})
	if err != nil || pl.Language != domain.LanguagePL {
		t.Fatalf("expected PL user, got %+v (%v)", pl, err)
	}

	de, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Username: "de", Password1: "p", Password2: "p", Email: "de@test.com", Language: "DE",
	})
	if err != nil {
		t.Fatalf("unsupported language must not fail registration: %v", err)
	}
	if de.Language != domain.LanguageEN {
		t.Fatalf("expected fallback to EN, got %s", de.Language)
	}
}

func TestAccountService_Register_StoreConflictAfterPrecheck(t *testing.T) {
	f := newFixture(t)
	f.users.createErr = &domain.Error{Kind: domain.ErrConflict, Message: "duplicate key"}

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Username: "t", Password1: "p", Password2: "p", Email: "t@test.com",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAccountService_Login_RoundTrip(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "t", "p", "t@test.com")

	res, err := f.svc.Login(context.Background(), "t", "p")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.User.ID != registered.ID {
		t.Fatalf("expected id %s, got %s", registered.ID, res.User.ID)
	}
	if res.Token == nil || res.Token.AccessToken == "" {
		t.Fatalf("expected token")
	}
	if role, _ := f.tokens.ResolveRole(context.Background(), res.Token.AccessToken); role != domain.RoleUser {
		t.Fatalf("token should carry USER role, got %q", role)
	}
}

func TestAccountService_Login_UniformFailure(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t", "p", "t@test.com")

	_, unknown := f.svc.Login(context.Background(), "ghost", "p")
	_, wrong := f.svc.Login(context.Background(), "t", "nope")

	if !errors.Is(unknown, domain.ErrInvalidCredentials) || !errors.Is(wrong, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v / %v", unknown, wrong)
	}
	if unknown.Error() != wrong.Error() {
		t.Fatalf("unknown user and wrong password must look the same: %q vs %q", unknown, wrong)
	}
}

func TestAccountService_Login_TokenServiceDown(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t", "p", "t@test.com")
	f.tokens.issueErr = domain.ErrTokenService

	if _, err := f.svc.Login(context.Background(), "t", "p"); !errors.Is(err, domain.ErrAuthServiceUnavailable) {
		t.Fatalf("expected auth service unavailable, got %v", err)
	}
}

func TestAccountService_Logout(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t", "p", "t@test.com")
	token := f.login(t, "t", "p")

	if err := f.svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.Me(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("blacklisted token must not resolve, got %v", err)
	}
}

func TestAccountService_Logout_BlacklistFailure(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t", "p", "t@test.com")
	token := f.login(t, "t", "p")
	f.tokens.blacklistErr = &domain.Error{Kind: domain.ErrAuthServiceUnavailable, Message: "status 500"}

	err := f.svc.Logout(context.Background(), token)
	if !errors.Is(err, domain.ErrAuthServiceUnavailable) {
		t.Fatalf("expected auth service unavailable, got %v", err)
	}
	if err != domain.ErrTokenService {
		t.Fatalf("expected retry message, got %q", err.Error())
	}
}

func TestAccountService_Me(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "t", "p", "t@test.com")
	token := f.login(t, "t", "p")

	me, err := f.svc.Me(context.Background(), token)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.View() != registered.View() {
		t.Fatalf("expected %+v, got %+v", registered.View(), me.View())
	}

	if _, err := f.svc.Me(context.Background(), ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if _, err := f.svc.Me(context.Background(), "forged"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}

	f.tokens.resolveErr = domain.ErrTokenService
	if _, err := f.svc.Me(context.Background(), token); !errors.Is(err, domain.ErrAuthServiceUnavailable) {
		t.Fatalf("token service failure must not be reported as an auth failure, got %v", err)
	}
}

func TestAccountService_UpdateMe_Password(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "t", "old", "t@test.com")
	token := f.login(t, "t", "old")

	_, err := f.svc.UpdateMe(context.Background(), token, ports.UpdateMeInput{OldPassword: "old", Password1: "new1", Password2: "new2"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("mismatched confirmation: expected forbidden, got %v", err)
	}
	_, err = f.svc.UpdateMe(context.Background(), token, ports.UpdateMeInput{OldPassword: "wrong", Password1: "new", Password2: "new"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("wrong old password: expected forbidden, got %v", err)
	}
	stored, _ := f.users.FindByID(context.Background(), u.ID)
	if stored.PasswordHash != u.PasswordHash {
		t.Fatalf("failed changes must leave the hash untouched")
	}

	res, err := f.svc.UpdateMe(context.Background(), token, ports.UpdateMeInput{OldPassword: "old", Password1: "new", Password2: "new"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Outcome != ports.PasswordChanged {
		t.Fatalf("expected password change, got %v", res.Outcome)
	}

	if _, err := f.svc.Login(context.Background(), "t", "old"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	f.login(t, "t", "new")
}

func TestAccountService_UpdateMe_Language(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "t", "p", "t@test.com")
	token := f.login(t, "t", "p")

	if _, err := f.svc.UpdateMe(context.Background(), token, ports.UpdateMeInput{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty update: expected invalid argument, got %v", err)
	}
	if _, err := f.svc.UpdateMe(context.Background(), token, ports.UpdateMeInput{Language: "DE"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("unsupported language: expected invalid argument, got %v", err)
	}
	if me, _ := f.svc.Me(context.Background(), token); me.Language != domain.LanguageEN {
		t.Fatalf("language must be unchanged after rejection, got %s", me.Language)
	}

	res, err := f.svc.UpdateMe(context.Background(), token, ports.UpdateMeInput{Language: "PL"})
	if err != nil || res.Outcome != ports.LanguageChanged {
		t.Fatalf("expected language change, got %+v (%v)", res, err)
	}
	if me, _ := f.svc.Me(context.Background(), token); me.Language != domain.LanguagePL {
		t.Fatalf("expected PL on next view, got %s", me.Language)
	}
	if stored, _ := f.users.FindByID(context.Background(), u.ID); stored.PasswordHash != u.PasswordHash {
		t.Fatalf("language change must not touch the password")
	}
}

func TestAccountService_UpdateMe_PasswordBranchWins(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t", "p", "t@test.com")
	token := f.login(t, "t", "p")

	res, err := f.svc.UpdateMe(context.Background(), token, ports.UpdateMeInput{
		OldPassword: "p", Password1: "q", Password2: "q", Language: "PL",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Outcome != ports.PasswordChanged {
		t.Fatalf("password branch must take priority, got %v", res.Outcome)
	}
	if me, _ := f.svc.Me(context.Background(), token); me.Language != domain.LanguageEN {
		t.Fatalf("language must be ignored when the password branch runs, got %s", me.Language)
	}

	// Incomplete password triple falls through to the language branch.
	res, err = f.svc.UpdateMe(context.Background(), token, ports.UpdateMeInput{OldPassword: "q", Password1: "r", Language: "PL"})
	if err != nil || res.Outcome != ports.LanguageChanged {
		t.Fatalf("expected language change, got %+v (%v)", res, err)
	}
}

func TestAccountService_DeleteMe(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "t", "p", "t@test.com")
	token := f.login(t, "t", "p")

	deleted, err := f.svc.DeleteMe(context.Background(), token)
	if err != nil {
		t.Fatalf("delete me: %v", err)
	}
	if deleted.ID != u.ID {
		t.Fatalf("deleted the wrong user: %s", deleted.ID)
	}
	if got, _ := f.users.FindByID(context.Background(), u.ID); got != nil {
		t.Fatalf("user still stored")
	}
	if len(f.tokens.blacklisted) != 1 || f.tokens.blacklisted[0] != token {
		t.Fatalf("self-deletion must blacklist the token, got %v", f.tokens.blacklisted)
	}
}

func TestAccountService_DeleteMe_LogoutFails(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "t", "p", "t@test.com")
	token := f.login(t, "t", "p")
	f.tokens.blacklistErr = domain.ErrTokenService

	deleted, err := f.svc.DeleteMe(context.Background(), token)
	if !errors.Is(err, domain.ErrAuthServiceUnavailable) {
		t.Fatalf("expected auth service unavailable, got %v", err)
	}
	if deleted == nil || deleted.ID != u.ID {
		t.Fatalf("deleted user should still be reported")
	}
	if got, _ := f.users.FindByID(context.Background(), u.ID); got != nil {
		t.Fatalf("deletion is not rolled back by a failed logout")
	}
}

func TestAccountService_GetUser(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "t", "p", "t@test.com")

	got, err := f.svc.GetUser(context.Background(), u.ID)
	if err != nil || got.Username != "t" {
		t.Fatalf("unexpected result %+v (%v)", got, err)
	}
	if _, err := f.svc.GetUser(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccountService_DeleteUser(t *testing.T) {
	f := newFixture(t)
	admin := f.adminToken(t)
	victim := f.register(t, "t", "p", "t@test.com")
	userToken := f.login(t, "t", "p")

	if _, err := f.svc.DeleteUser(context.Background(), userToken, victim.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-admin: expected forbidden, got %v", err)
	}

	deleted, err := f.svc.DeleteUser(context.Background(), admin, victim.ID)
	if err != nil || deleted.ID != victim.ID {
		t.Fatalf("admin delete: %+v (%v)", deleted, err)
	}

	_, err = f.svc.DeleteUser(context.Background(), admin, victim.ID)
	if !errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleting a missing user is an invalid argument, got %v", err)
	}
}

func TestAccountService_ListUsers_ShapeDependsOnRole(t *testing.T) {
	f := newFixture(t)
	admin := f.adminToken(t)
	f.register(t, "t", "p", "t@test.com")
	userToken := f.login(t, "t", "p")

	list, err := f.svc.ListUsers(context.Background(), userToken)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Detailed {
		t.Fatalf("regular users must not get detailed listings")
	}
	if len(list.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(list.Users))
	}

	list, err = f.svc.ListUsers(context.Background(), admin)
	if err != nil || !list.Detailed {
		t.Fatalf("admin should get detailed listing: %+v (%v)", list, err)
	}
}

func TestAccountService_TestUsers(t *testing.T) {
	f := newFixture(t)
	admin := f.adminToken(t)
	f.register(t, "keep", "p", "keep@example.com")
	userToken := f.login(t, "keep", "p")

	if _, err := f.svc.GenerateTestUsers(context.Background(), userToken, 5); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("generate as user: expected forbidden, got %v", err)
	}
	if _, err := f.svc.PurgeTestUsers(context.Background(), userToken); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("purge as user: expected forbidden, got %v", err)
	}
	if _, err := f.svc.GenerateTestUsers(context.Background(), admin, MaxTestUsers+1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument above the limit, got %v", err)
	}

	n, err := f.svc.GenerateTestUsers(context.Background(), admin, 20)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if n != 20 || f.users.count() != 22 {
		t.Fatalf("expected 20 generated users (22 total), got %d (%d total)", n, f.users.count())
	}

	purged, err := f.svc.PurgeTestUsers(context.Background(), admin)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 20 || f.users.count() != 2 {
		t.Fatalf("expected 20 purged (2 left), got %d (%d left)", purged, f.users.count())
	}
}

func TestAccountService_UniquenessProperty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ops := []ports.RegisterInput{
		{Username: "a", Password1: "p", Password2: "p", Email: "a@test.com"},
		{Username: "a", Password1: "p", Password2: "p", Email: "b@test.com"},
		{Username: "b", Password1: "p", Password2: "p", Email: "a@test.com"},
		{Username: "b", Password1: "p", Password2: "p", Email: "b@test.com"},
	}
	for _, in := range ops {
		_, _ = f.svc.Register(ctx, in)
	}
	admin := f.adminToken(t)
	a, _ := f.users.FindByUsername(ctx, "a")
	if _, err := f.svc.DeleteUser(ctx, admin, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, _ = f.svc.Register(ctx, ports.RegisterInput{Username: "a", Password1: "p", Password2: "p", Email: "b@test.com"})
	_, _ = f.svc.Register(ctx, ports.RegisterInput{Username: "a", Password1: "p", Password2: "p", Email: "a@test.com"})

	all, _ := f.users.FindAll(ctx)
	names := map[string]bool{}
	emails := map[string]bool{}
	for _, u := range all {
		if names[u.Username] || emails[u.Email] {
			t.Fatalf("duplicate username or email: %+v", u)
		}
		names[u.Username] = true
		emails[u.Email] = true
	}
	if len(all) != 3 {
		t.Fatalf("expected admin, a and b, got %d users", len(all))
	}
}
