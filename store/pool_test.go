package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	backend := NewMemoryBackend()
	p, err := New(context.Background(), backend, &UserPool{Id: "us-east-1_test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestSaveUserThenLookupBySub(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()

	u := &User{Username: "alice", Sub: "sub-1", UserStatus: StatusConfirmed, Enabled: true}
	if err := p.SaveUser(ctx, u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	got, ok := p.GetUserBySub("sub-1")
	if !ok || got.Username != "alice" {
		t.Fatalf("GetUserBySub = %v, %v", got, ok)
	}

	got, ok = p.GetUserByUsername("ALICE")
	if !ok || got.Sub != "sub-1" {
		t.Fatalf("case-insensitive lookup failed: %v, %v", got, ok)
	}
}

func TestRefreshTokenInvariant(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()

	u := &User{Username: "alice", Sub: "sub-1"}
	if err := p.SaveUser(ctx, u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := p.StoreRefreshToken(ctx, "alice", "rt-1"); err != nil {
			t.Fatalf("StoreRefreshToken: %v", err)
		}
	}

	got, _ := p.GetUserByUsername("alice")
	if len(got.RefreshTokens) != 1 {
		t.Fatalf("expected idempotent token set, got %v", got.RefreshTokens)
	}

	owner, ok := p.GetUserByRefreshToken("rt-1")
	if !ok || owner.Username != "alice" {
		t.Fatalf("reverse index broken: %v, %v", owner, ok)
	}

	if err := p.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, ok := p.GetUserByRefreshToken("rt-1"); ok {
		t.Fatalf("expected refresh token purged after delete")
	}
}

func TestSetUserMFAPreferenceIdempotent(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()

	u := &User{Username: "alice", Sub: "sub-1"}
	_ = p.SaveUser(ctx, u)

	pref := MFAPreference{SoftwareTokenMFAEnabled: true, SoftwareTokenAsDefault: true}
	if err := p.SetUserMFAPreference(ctx, "alice", pref); err != nil {
		t.Fatalf("SetUserMFAPreference: %v", err)
	}
	if err := p.SetUserMFAPreference(ctx, "alice", pref); err != nil {
		t.Fatalf("SetUserMFAPreference (second): %v", err)
	}

	got, _ := p.GetUserByUsername("alice")
	if got.PreferredMfaSetting != "SOFTWARE_TOKEN_MFA" {
		t.Fatalf("PreferredMfaSetting = %q", got.PreferredMfaSetting)
	}
	if len(got.UserMFASettingList) != 1 {
		t.Fatalf("UserMFASettingList = %v", got.UserMFASettingList)
	}
}

func TestListUsersFilterAndPagination(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()

	for i, sub := range []string{"a", "b", "c"} {
		u := &User{Username: sub, Sub: sub}
		u.SetAttribute("email", sub+"@example.com")
		if i == 1 {
			u.SetAttribute("email", "shared@example.com")
		}
		_ = p.SaveUser(ctx, u)
	}

	page, next, err := p.ListUsers(UserFilter{}, "", 2)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(page) != 2 || next == "" {
		t.Fatalf("expected a partial page with a continuation token, got %d users, token=%q", len(page), next)
	}

	rest, next2, err := p.ListUsers(UserFilter{}, next, 2)
	if err != nil {
		t.Fatalf("ListUsers page 2: %v", err)
	}
	if len(rest) != 1 || next2 != "" {
		t.Fatalf("expected final page of 1, got %d, token=%q", len(rest), next2)
	}

	filter, err := ParseUserFilter(`email = "shared@example.com"`)
	if err != nil {
		t.Fatalf("ParseUserFilter: %v", err)
	}
	filtered, _, err := p.ListUsers(filter, "", 0)
	if err != nil {
		t.Fatalf("ListUsers filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Username != "b" {
		t.Fatalf("filter mismatch: %v", filtered)
	}
}

func TestRedisBackendRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backend := NewRedisBackend(client, "pool:")

	ctx := context.Background()
	p, err := New(ctx, backend, &UserPool{Id: "us-east-1_redis"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.SaveUser(ctx, &User{Username: "alice", Sub: "sub-1"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	reloaded, err := Load(ctx, backend, "us-east-1_redis")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := reloaded.GetUserByUsername("alice"); !ok {
		t.Fatalf("expected alice to survive a reload from redis")
	}
}

func TestGroupMembership(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()

	_ = p.SaveUser(ctx, &User{Username: "alice", Sub: "sub-1"})
	precedence := int32(1)
	if err := p.SaveGroup(ctx, &Group{GroupName: "admins", Precedence: &precedence}); err != nil {
		t.Fatalf("SaveGroup: %v", err)
	}
	if err := p.AddUserToGroup(ctx, "admins", "alice"); err != nil {
		t.Fatalf("AddUserToGroup: %v", err)
	}
	if err := p.AddUserToGroup(ctx, "admins", "alice"); err != nil {
		t.Fatalf("AddUserToGroup (idempotent): %v", err)
	}

	members := p.ListGroupMembership("admins")
	if len(members) != 1 {
		t.Fatalf("expected idempotent membership, got %v", members)
	}

	groups := p.ListUserGroupMembership("alice")
	if len(groups) != 1 || groups[0] != "admins" {
		t.Fatalf("ListUserGroupMembership = %v", groups)
	}

	if err := p.RemoveUserFromGroup(ctx, "admins", "alice"); err != nil {
		t.Fatalf("RemoveUserFromGroup: %v", err)
	}
	if members := p.ListGroupMembership("admins"); len(members) != 0 {
		t.Fatalf("expected empty membership after removal, got %v", members)
	}
}
