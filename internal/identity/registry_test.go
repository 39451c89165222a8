package identity

import (
	"errors"
	"testing"
)

const admin = "0xADMIN"

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(admin)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestRegisterAssignsMonotonicIDs(t *testing.T) {
	r := newTestRegistry(t)

	id1, err := r.Register("Org One", "R1", "T1", "0xA")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := r.Register("Org Two", "R2", "T2", "0xB")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != 1 || id2 != 2 {
		t.Fatalf("unexpected ids: %d, %d", id1, id2)
	}

	org, err := r.ByID(id1)
	if err != nil {
		t.Fatal(err)
	}
	if org.Verified || !org.Active {
		t.Fatalf("new org should be unverified and active: %+v", org)
	}
}

func TestRegisterDuplicateFields(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Register("Org One", "R1", "T1", "0xA"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name, reg, tax, wallet string
	}{
		{"Other", "R1", "T9", "0x9"},
		{"Other", "R9", "T1", "0x9"},
		{"Other", "R9", "T9", "0xA"},
	}
	for _, c := range cases {
		if _, err := r.Register(c.name, c.reg, c.tax, c.wallet); !errors.Is(err, ErrDuplicateIdentity) {
			t.Fatalf("expected ErrDuplicateIdentity for %+v, got %v", c, err)
		}
	}
}

func TestRejectFreesUniquenessSlots(t *testing.T) {
	r := newTestRegistry(t)
	id, err := r.Register("Org One", "R1", "T1", "0xA")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Reject(id, admin); err != nil {
		t.Fatal(err)
	}

	// same identity fields are available again
	id2, err := r.Register("Org One Again", "R1", "T1", "0xA")
	if err != nil {
		t.Fatalf("re-register after reject: %v", err)
	}
	if id2 == id {
		t.Fatalf("id %d was reused", id)
	}

	// old record stays visible but inactive
	old, err := r.ByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if old.Active {
		t.Fatal("rejected org should be inactive")
	}
	// lookups resolve the new active org only
	got, err := r.ByRegistrationNumber("R1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id2 {
		t.Fatalf("registration lookup resolved %d, want %d", got.ID, id2)
	}
}

func TestVerifyAuthorizationAndIdempotence(t *testing.T) {
	r := newTestRegistry(t)
	id, _ := r.Register("Org One", "R1", "T1", "0xA")

	if err := r.Verify(id, "0xNOTADMIN"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := r.Verify(id, admin); err != nil {
		t.Fatal(err)
	}
	if err := r.Verify(id, admin); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}

	org, _ := r.ByID(id)
	if !org.Verified {
		t.Fatal("org should stay verified after repeated verify")
	}
	if err := r.Verify(99, admin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectRequiresAuthority(t *testing.T) {
	r := newTestRegistry(t)
	id, _ := r.Register("Org One", "R1", "T1", "0xA")

	if err := r.Reject(id, "0xA"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := r.Reject(99, admin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := r.Reject(id, admin); err != nil {
		t.Fatal(err)
	}
	// rejecting twice: already inactive, so the record is gone from the active set
	if err := r.Reject(id, admin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second reject, got %v", err)
	}
}

func TestTransferAuthority(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.TransferAuthority("0xNEW", "0xMALLORY"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := r.TransferAuthority("0xNEW", admin); err != nil {
		t.Fatal(err)
	}
	if got := r.Authority(); got != "0xNEW" {
		t.Fatalf("authority = %q, want 0xNEW", got)
	}
	// old authority lost the capability atomically
	if err := r.TransferAuthority("0xOTHER", admin); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for former authority, got %v", err)
	}
}

func TestLookupsAndCount(t *testing.T) {
	r := newTestRegistry(t)
	id, _ := r.Register("Org One", "R1", "T1", "0xA")
	r.Register("Org Two", "R2", "T2", "0xB")

	byWallet, err := r.ByWallet("0xA")
	if err != nil || byWallet.ID != id {
		t.Fatalf("ByWallet: %v %+v", err, byWallet)
	}
	byTax, err := r.ByTaxID("T1")
	if err != nil || byTax.ID != id {
		t.Fatalf("ByTaxID: %v %+v", err, byTax)
	}
	if _, err := r.ByWallet("0xMISSING"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list := r.List()
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if r.Count() != 2 {
		t.Fatalf("count = %d, want 2", r.Count())
	}

	// count does not decrement on rejection
	if err := r.Reject(id, admin); err != nil {
		t.Fatal(err)
	}
	if r.Count() != 2 {
		t.Fatalf("count after reject = %d, want 2", r.Count())
	}
}

func TestQueryReturnsCopies(t *testing.T) {
	r := newTestRegistry(t)
	id, _ := r.Register("Org One", "R1", "T1", "0xA")

	org, _ := r.ByID(id)
	org.Verified = true
	org.ControllingAddress = "0xHACK"

	fresh, _ := r.ByID(id)
	if fresh.Verified || fresh.ControllingAddress != "0xA" {
		t.Fatalf("registry state mutated through a query copy: %+v", fresh)
	}
}
