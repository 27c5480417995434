package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/perks/perks/internal/model"
)

func newUserTestService() (*UserService, *fakeStore, *fakeAuthCache) {
	store := newFakeStore()
	cache := newFakeAuthCache()
	return NewUserService(store, store, cache, 7*24*time.Hour, nil), store, cache
}

func TestUserService_Register(t *testing.T) {
	svc, _, _ := newUserTestService()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	user, err := svc.Register(ctx, RegisterInput{UTORid: "NewUser1", Name: " New User ", Email: "new.user@mail.utoronto.ca"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.UTORid != "newuser1" || user.Name != "New User" || user.Role != model.RoleRegular {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.Verified || user.ResetToken == nil || user.ResetExpiresAt == nil {
		t.Fatal("new user should be unverified with an activation token")
	}
	if !user.ResetExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Errorf("activation expiry = %v", user.ResetExpiresAt)
	}

	testCases := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"duplicate utorid", RegisterInput{UTORid: "newuser1", Name: "Other", Email: "other@mail.utoronto.ca"}, ErrUTORidExists},
		{"duplicate email", RegisterInput{UTORid: "other001", Name: "Other", Email: "new.user@mail.utoronto.ca"}, ErrEmailExists},
		{"bad utorid", RegisterInput{UTORid: "x", Name: "Other", Email: "x@mail.utoronto.ca"}, ErrValidation},
		{"missing name", RegisterInput{UTORid: "other002", Email: "y@mail.utoronto.ca"}, ErrValidation},
		{"bad email", RegisterInput{UTORid: "other003", Name: "Other", Email: "nope"}, ErrValidation},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.input); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUserService_ListUsersPassesFilters(t *testing.T) {
	svc, store, _ := newUserTestService()
	ctx := context.Background()
	store.addUser("alice001", model.RoleRegular, 0)

	role := model.RoleCashier
	activated := true
	result, err := svc.ListUsers(ctx, ListUsersInput{
		Name: "ali", Role: &role, Activated: &activated,
		PageRequest: PageRequest{Page: 2, Limit: 5},
	})
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if result.Count != 1 || len(result.Results) != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if store.lastUserFilter.Name != "ali" || *store.lastUserFilter.Role != model.RoleCashier || !*store.lastUserFilter.Activated {
		t.Errorf("filter not forwarded: %+v", store.lastUserFilter)
	}
	if store.lastPage.Limit != 5 || store.lastPage.Offset != 5 {
		t.Errorf("page = %+v", store.lastPage)
	}

	bad := model.Role("owner")
	if _, err := svc.ListUsers(ctx, ListUsersInput{Role: &bad}); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown role should fail validation, got %v", err)
	}
}

func TestUserService_ProfileIncludesUsablePromotions(t *testing.T) {
	svc, store, _ := newUserTestService()
	ctx := context.Background()
	now := time.Now()

	user := store.addUser("alice001", model.RoleRegular, 10)
	for _, p := range []*model.Promotion{
		{Name: "one time", Type: model.PromotionOneTime, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)},
		{Name: "automatic", Type: model.PromotionAutomatic, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)},
		{Name: "upcoming", Type: model.PromotionOneTime, StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour)},
	} {
		if err := store.CreatePromotion(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	profile, err := svc.GetProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.User.ID != user.ID || len(profile.Promotions) != 1 || profile.Promotions[0].Name != "one time" {
		t.Errorf("unexpected profile: %+v", profile)
	}

	if _, err := svc.GetProfile(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc, store, cache := newUserTestService()
	ctx := context.Background()
	user := store.addUser("alice001", model.RoleRegular, 0)
	store.addUser("bob00001", model.RoleRegular, 0)

	name, birthday, avatar := "Alice A.", "2001-09-14", "https://cdn.example.com/alice.png"
	updated, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{Name: &name, Birthday: &birthday, AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Name != name || *updated.Birthday != birthday || *updated.AvatarURL != avatar {
		t.Errorf("unexpected user: %+v", updated)
	}
	if len(cache.deletes) != 1 || cache.deletes[0] != user.ID {
		t.Errorf("auth cache should be invalidated, deletes = %v", cache.deletes)
	}

	taken := "bob00001@mail.utoronto.ca"
	if _, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{Email: &taken}); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty update should fail validation, got %v", err)
	}
}

func TestUserService_ChangePassword(t *testing.T) {
	svc, store, _ := newUserTestService()
	ctx := context.Background()
	user := store.addUser("alice001", model.RoleRegular, 0)
	withPassword(t, store, user.ID, testPassword)

	if err := svc.ChangePassword(ctx, user.ID, "Wr0ng!Pass", "N3w!Password"); !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("expected ErrIncorrectPassword, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, testPassword, "short"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, testPassword, "N3w!Password"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, testPassword, "An0ther!Pass"); !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("old password should no longer work, got %v", err)
	}
}

func TestUserService_AdminUpdate(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }
	rolePtr := func(r model.Role) *model.Role { return &r }

	testCases := []struct {
		name       string
		callerRole model.Role
		targetRole model.Role
		input      AdminUpdateInput
		wantErr    error
		check      func(t *testing.T, u *model.User)
	}{
		{
			name:       "manager promotes to cashier and clears suspicious",
			callerRole: model.RoleManager,
			targetRole: model.RoleRegular,
			input:      AdminUpdateInput{Role: rolePtr(model.RoleCashier)},
			check: func(t *testing.T, u *model.User) {
				if u.Role != model.RoleCashier || u.Suspicious {
					t.Errorf("role/suspicious = %s/%v", u.Role, u.Suspicious)
				}
			},
		},
		{
			name:       "manager cannot grant manager",
			callerRole: model.RoleManager,
			targetRole: model.RoleRegular,
			input:      AdminUpdateInput{Role: rolePtr(model.RoleManager)},
			wantErr:    ErrForbidden,
		},
		{
			name:       "manager cannot edit another manager",
			callerRole: model.RoleManager,
			targetRole: model.RoleManager,
			input:      AdminUpdateInput{Verified: boolPtr(true)},
			wantErr:    ErrForbidden,
		},
		{
			name:       "superuser grants superuser",
			callerRole: model.RoleSuperuser,
			targetRole: model.RoleManager,
			input:      AdminUpdateInput{Role: rolePtr(model.RoleSuperuser)},
			check: func(t *testing.T, u *model.User) {
				if u.Role != model.RoleSuperuser {
					t.Errorf("role = %s", u.Role)
				}
			},
		},
		{
			name:       "verified can only be set true",
			callerRole: model.RoleManager,
			targetRole: model.RoleRegular,
			input:      AdminUpdateInput{Verified: boolPtr(false)},
			wantErr:    ErrValidation,
		},
		{
			name:       "clear suspicious",
			callerRole: model.RoleManager,
			targetRole: model.RoleCashier,
			input:      AdminUpdateInput{Suspicious: boolPtr(false)},
			check: func(t *testing.T, u *model.User) {
				if u.Suspicious {
					t.Error("user should no longer be suspicious")
				}
			},
		},
		{
			name:       "empty update",
			callerRole: model.RoleManager,
			targetRole: model.RoleRegular,
			wantErr:    ErrValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, cache := newUserTestService()
			ctx := context.Background()

			caller := store.addUser("boss0001", tc.callerRole, 0)
			target := store.addUser("target01", tc.targetRole, 0)
			store.users[target.ID].Suspicious = true

			updated, err := svc.AdminUpdate(ctx, staff(caller), target.ID, tc.input)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AdminUpdate failed: %v", err)
			}
			tc.check(t, updated)
			if len(cache.deletes) != 1 {
				t.Errorf("auth cache should be invalidated once, got %v", cache.deletes)
			}
		})
	}
}
