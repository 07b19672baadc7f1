package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRoleRoundTrip(t *testing.T) {
	for _, role := range AllRoles {
		parsed, err := ParseRole(role.String())
		if err != nil {
			t.Fatalf("ParseRole(%s): %v", role, err)
		}
		if parsed != role {
			t.Fatalf("round trip mismatch: %s != %s", parsed, role)
		}
	}
	if _, err := ParseRole("SUPERUSER"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRoleCapabilities(t *testing.T) {
	if !RoleLogisticsOfficer.CanPrepareFulfilment() {
		t.Fatal("logistics officer must be able to prepare fulfilment")
	}
	if RoleLogisticsOfficer.CanApproveFulfilment() {
		t.Fatal("logistics officer must not approve fulfilment")
	}
	if !RoleLogisticsManager.CanApproveFulfilment() {
		t.Fatal("logistics manager must approve fulfilment")
	}
	if RoleFieldPersonnel.CanDispatch() {
		t.Fatal("field personnel must not dispatch")
	}
	if !RoleWarehouseStaff.CanDispatch() {
		t.Fatal("warehouse staff must dispatch")
	}
	if RoleAuditor.CanRecordMovements() {
		t.Fatal("auditor is read-only")
	}
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyPassword(hash, "s3cret"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("RELIEF_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	u := User{ID: "u1", FullName: "Alice Grant", Role: RoleLogisticsOfficer, HubID: "hub-1"}
	token, err := GenerateToken(u, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "u1" || claims.Role != "LOGISTICS_OFFICER" || claims.HubID != "hub-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	t.Setenv("RELIEF_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	u := User{ID: "u1", Role: RoleAdmin}
	token, err := GenerateToken(u, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRegistryAuthenticate(t *testing.T) {
	r := NewInMemory()
	ctx := context.Background()

	u, err := r.Create(ctx, "ops@odpem.gov.jm", "Olive Thomas", "pass1234", RoleWarehouseStaff, "hub-kingston")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Create(ctx, "ops@odpem.gov.jm", "Other", "x", RoleAdmin, ""); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := r.Authenticate(ctx, "OPS@odpem.gov.jm", "pass1234")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID || got.LastLoginAt.IsZero() {
		t.Fatalf("unexpected authenticated user: %+v", got)
	}

	if _, err := r.Authenticate(ctx, "ops@odpem.gov.jm", "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := r.SetActive(ctx, u.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Authenticate(ctx, "ops@odpem.gov.jm", "pass1234"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("disabled account must not authenticate, got %v", err)
	}
}
