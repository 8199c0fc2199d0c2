package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/watchdeck/user-api/internal/core/domain"
	"github.com/watchdeck/user-api/internal/core/policy"
	"github.com/watchdeck/user-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newUserSvc(repo *stubUserRepo) *UserService {
	svc := NewUserService(repo, stubHasher{}, discardLogger)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "item-1" }
	return svc
}

func asUser(id string) *domain.Claim { return &domain.Claim{UserID: id, Role: domain.RoleUser} }
func asAdmin(id string) *domain.Claim { return &domain.Claim{UserID: id, Role: domain.RoleAdmin} }

func strPtr(s string) *string { return &s }

// seededRepo holds admin "1", bob "7" and carol "9".
func seededRepo() *stubUserRepo {
	repo := newStubUserRepo()
	repo.seed("1", "root", domain.RoleAdmin)
	repo.seed("7", "bob", domain.RoleUser)
	repo.seed("9", "carol", domain.RoleUser)
	return repo
}

// ---------------------------------------------------------------------------
// Permission before existence
// ---------------------------------------------------------------------------

func TestUserService_UserOnOtherIDIsForbidden(t *testing.T) {
	ctx := context.Background()
	// "404" does not exist: the caller must still see Forbidden, not NotFound.
	for _, target := range []string{"9", "404"} {
		repo := seededRepo()
		svc := newUserSvc(repo)
		claim := asUser("7")

		_, getErr := svc.GetByID(ctx, claim, target)
		_, editErr := svc.Edit(ctx, claim, target, policy.EditRequest{Username: "x"})
		_, listErr := svc.GetWatchList(ctx, claim, target)
		_, addErr := svc.AddWatchItem(ctx, claim, target, ports.WatchItemInput{Kind: domain.WatchKindMovie, RefID: "603"})

		for name, err := range map[string]error{"GetByID": getErr, "Edit": editErr, "GetWatchList": listErr, "AddWatchItem": addErr} {
			if !errors.Is(err, domain.ErrForbidden) {
				t.Errorf("target %s %s: expected ErrForbidden, got %v", target, name, err)
			}
		}
		if len(repo.calls) != 0 {
			t.Errorf("target %s: denied requests must not reach the store, got calls %v", target, repo.calls)
		}
	}
}

func TestUserService_AdminOnlyOperations(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	svc := newUserSvc(repo)

	if _, err := svc.ListAll(ctx, asUser("7")); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("ListAll as user: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, asUser("7"), "7"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Delete self as user: expected ErrForbidden, got %v", err)
	}
	if repo.writes != 0 {
		t.Errorf("expected no writes, got %d", repo.writes)
	}

	users, err := svc.ListAll(ctx, asAdmin("1"))
	if err != nil {
		t.Fatalf("ListAll as admin: %v", err)
	}
	if len(users) != 3 {
		t.Errorf("expected 3 users, got %d", len(users))
	}
}

func TestUserService_NilClaimDenied(t *testing.T) {
	svc := newUserSvc(seededRepo())
	if _, err := svc.GetByID(context.Background(), nil, "7"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestUserService_GetByID_Self(t *testing.T) {
	svc := newUserSvc(seededRepo())

	user, err := svc.GetByID(context.Background(), asUser("7"), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "bob" {
		t.Errorf("expected bob, got %q", user.Username)
	}
}

func TestUserService_GetByID_AdminNotFound(t *testing.T) {
	svc := newUserSvc(seededRepo())

	_, err := svc.GetByID(context.Background(), asAdmin("1"), "404")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_StoreFailureIsWrapped(t *testing.T) {
	repo := seededRepo()
	cause := errors.New("connection reset")
	repo.findErr = cause
	repo.listErr = cause
	svc := newUserSvc(repo)

	_, err := svc.GetByID(context.Background(), asAdmin("1"), "7")
	if !errors.Is(err, domain.ErrStoreFailure) || !errors.Is(err, cause) {
		t.Fatalf("expected store failure wrapping cause, got %v", err)
	}

	_, err = svc.ListAll(context.Background(), asAdmin("1"))
	if !errors.Is(err, domain.ErrStoreFailure) {
		t.Fatalf("expected store failure from ListAll, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserService_Create_ForcesUserRole(t *testing.T) {
	repo := newStubUserRepo()
	svc := newUserSvc(repo)

	user, err := svc.Create(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("expected role USER, got %q", user.Role)
	}
	if user.Username != "alice" {
		t.Errorf("expected username alice, got %q", user.Username)
	}
	if user.ID == "" {
		t.Errorf("expected an assigned id")
	}
	if user.PasswordHash != "hash:secret" {
		t.Errorf("expected hashed password, got %q", user.PasswordHash)
	}
	if user.WatchList == nil || len(user.WatchList) != 0 {
		t.Errorf("expected an empty watch list, got %v", user.WatchList)
	}
}

func TestUserService_Create_Validation(t *testing.T) {
	repo := newStubUserRepo()
	svc := newUserSvc(repo)

	cases := []struct{ username, password string }{
		{"", "secret"},
		{"   ", "secret"},
		{"alice", ""},
		{"alice", "  "},
	}
	for _, tc := range cases {
		_, err := svc.Create(context.Background(), tc.username, tc.password)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Create(%q, %q): expected ErrInvalidInput, got %v", tc.username, tc.password, err)
		}
	}
	if repo.writes != 0 {
		t.Errorf("invalid input must not be persisted, got %d writes", repo.writes)
	}
}

func TestUserService_Create_LengthLimits(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, stubHasher{err: errors.New("hasher must not be reached")}, discardLogger)

	cases := []struct {
		name, username, password, reason string
	}{
		{"multibyte password over 72 bytes", "alice", strings.Repeat("é", 40), "password is too long"},
		{"ascii password over 72 bytes", "alice", strings.Repeat("a", 73), "password is too long"},
		{"username over 64 characters", strings.Repeat("a", 65), "secret", "username is too long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.username, tc.password)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if err.Error() != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, err.Error())
			}
		})
	}
	if repo.writes != 0 {
		t.Errorf("expected no writes, got %d", repo.writes)
	}
}

func TestUserService_Create_AcceptsLimits(t *testing.T) {
	svc := newUserSvc(newStubUserRepo())

	// 64 characters of a two-byte rune, 72 bytes of password.
	username := strings.Repeat("ü", 64)
	password := strings.Repeat("é", 36)
	user, err := svc.Create(context.Background(), "  "+username+"  ", password)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != username {
		t.Fatalf("expected trimmed username, got %q", user.Username)
	}
}

func TestUserService_Create_Duplicate(t *testing.T) {
	svc := newUserSvc(seededRepo())

	if _, err := svc.Create(context.Background(), "bob", "pw"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserService_Create_HasherError(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, stubHasher{err: errors.New("boom")}, discardLogger)

	if _, err := svc.Create(context.Background(), "alice", "pw"); err == nil {
		t.Fatal("expected error when hashing fails")
	}
	if repo.writes != 0 {
		t.Errorf("expected no writes, got %d", repo.writes)
	}
}

// ---------------------------------------------------------------------------
// Edit
// ---------------------------------------------------------------------------

func TestUserService_Edit_AdminPromotesKeepingUsername(t *testing.T) {
	repo := seededRepo()
	svc := newUserSvc(repo)

	updated, err := svc.Edit(context.Background(), asAdmin("1"), "7", policy.EditRequest{Username: "", Role: strPtr("ADMIN")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Username != "bob" || updated.Role != domain.RoleAdmin {
		t.Fatalf("expected bob/ADMIN, got %s/%s", updated.Username, updated.Role)
	}
	if repo.users["7"].PasswordHash != "hash:bob" {
		t.Errorf("password hash must be untouched, got %q", repo.users["7"].PasswordHash)
	}
}

func TestUserService_Edit_AdminDemotes(t *testing.T) {
	repo := seededRepo()
	repo.seed("2", "ops", domain.RoleAdmin)
	svc := newUserSvc(repo)

	updated, err := svc.Edit(context.Background(), asAdmin("1"), "2", policy.EditRequest{Role: strPtr("USER")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Role != domain.RoleUser {
		t.Fatalf("expected USER, got %q", updated.Role)
	}
}

func TestUserService_Edit_UserEscalationForbidden(t *testing.T) {
	repo := seededRepo()
	svc := newUserSvc(repo)

	_, err := svc.Edit(context.Background(), asUser("7"), "7", policy.EditRequest{Role: strPtr("ADMIN")})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if repo.writes != 0 || repo.users["7"].Role != domain.RoleUser {
		t.Fatalf("stored user must be unchanged")
	}
}

func TestUserService_Edit_InvalidRoleLeavesUserUnchanged(t *testing.T) {
	repo := seededRepo()
	svc := newUserSvc(repo)

	_, err := svc.Edit(context.Background(), asAdmin("1"), "7", policy.EditRequest{Username: "robert", Role: strPtr("ROOT")})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if repo.writes != 0 {
		t.Fatalf("expected no writes, got %d", repo.writes)
	}
	if u := repo.users["7"]; u.Username != "bob" || u.Role != domain.RoleUser {
		t.Fatalf("stored user changed: %+v", u)
	}
}

func TestUserService_Edit_OmittedFieldsPreserved(t *testing.T) {
	repo := seededRepo()
	svc := newUserSvc(repo)

	updated, err := svc.Edit(context.Background(), asUser("7"), "7", policy.EditRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Username != "bob" || updated.Role != domain.RoleUser {
		t.Fatalf("expected bob/USER, got %s/%s", updated.Username, updated.Role)
	}
}

func TestUserService_Edit_UsernameRules(t *testing.T) {
	cases := []struct {
		name     string
		username string
	}{
		{"whitespace only", "   "},
		{"over 64 characters", strings.Repeat("x", 5000)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := seededRepo()
			svc := newUserSvc(repo)

			_, err := svc.Edit(context.Background(), asUser("7"), "7", policy.EditRequest{Username: tc.username})
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if repo.writes != 0 || repo.users["7"].Username != "bob" {
				t.Fatalf("stored user must be unchanged, got %q after %d writes", repo.users["7"].Username, repo.writes)
			}
		})
	}
}

func TestUserService_Edit_TrimsUsername(t *testing.T) {
	repo := seededRepo()
	svc := newUserSvc(repo)

	updated, err := svc.Edit(context.Background(), asUser("7"), "7", policy.EditRequest{Username: "  robert "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Username != "robert" || repo.users["7"].Username != "robert" {
		t.Fatalf("expected robert, got %q", updated.Username)
	}
}

func TestUserService_Edit_NotFoundAfterPermission(t *testing.T) {
	repo := seededRepo()
	svc := newUserSvc(repo)

	_, err := svc.Edit(context.Background(), asAdmin("1"), "404", policy.EditRequest{Role: strPtr("ADMIN")})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestUserService_Delete(t *testing.T) {
	repo := seededRepo()
	svc := newUserSvc(repo)
	admin := asAdmin("1")

	if err := svc.Delete(context.Background(), admin, "404"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for missing id, got %v", err)
	}

	if err := svc.Delete(context.Background(), admin, "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), admin, "7"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Watch list
// ---------------------------------------------------------------------------

func TestUserService_AddWatchItem(t *testing.T) {
	repo := seededRepo()
	svc := newUserSvc(repo)

	id, err := svc.AddWatchItem(context.Background(), asUser("7"), "7", ports.WatchItemInput{
		Kind:  domain.WatchKindMovie,
		RefID: " 603 ",
		Title: "The Matrix",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "item-1" {
		t.Errorf("expected item id %q, got %q", "item-1", id)
	}

	list, err := svc.GetWatchList(context.Background(), asUser("7"), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(list))
	}
	if list[0].RefID != "603" || list[0].Kind != domain.WatchKindMovie || list[0].AddedAt.IsZero() {
		t.Errorf("unexpected entry: %+v", list[0])
	}
}

func TestUserService_AddWatchItem_AdminOnOtherUser(t *testing.T) {
	repo := seededRepo()
	svc := newUserSvc(repo)

	if _, err := svc.AddWatchItem(context.Background(), asAdmin("1"), "9", ports.WatchItemInput{Kind: domain.WatchKindTV, RefID: "1399"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.users["9"].WatchList) != 1 {
		t.Fatalf("expected carol's watch list to have 1 entry")
	}
}

func TestUserService_AddWatchItem_Invalid(t *testing.T) {
	repo := seededRepo()
	svc := newUserSvc(repo)

	cases := []ports.WatchItemInput{
		{Kind: domain.WatchKind("book"), RefID: "1"},
		{Kind: domain.WatchKindMovie, RefID: "  "},
	}
	for _, in := range cases {
		if _, err := svc.AddWatchItem(context.Background(), asUser("7"), "7", in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%+v: expected ErrInvalidInput, got %v", in, err)
		}
	}
	if repo.writes != 0 {
		t.Errorf("expected no writes, got %d", repo.writes)
	}
}

func TestUserService_AddWatchItem_NotFound(t *testing.T) {
	svc := newUserSvc(seededRepo())

	_, err := svc.AddWatchItem(context.Background(), asAdmin("1"), "404", ports.WatchItemInput{Kind: domain.WatchKindMovie, RefID: "1"})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_GetWatchList_EmptyIsNotNil(t *testing.T) {
	svc := newUserSvc(seededRepo())

	list, err := svc.GetWatchList(context.Background(), asUser("7"), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", list)
	}
}
