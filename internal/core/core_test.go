package core

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"giveledger.org/internal/audit"
	"giveledger.org/internal/campaign"
	"giveledger.org/internal/donation"
	"giveledger.org/internal/identity"
	"giveledger.org/internal/obs"
)

const admin = "0xADMIN"

// quiet silences audit JSON lines for the duration of a test.
func quiet(t *testing.T) {
	t.Helper()
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger.SetOutput(original) })
}

func newTestCore(t *testing.T, now *int64) *Core {
	t.Helper()
	quiet(t)
	c, err := New(admin, WithClock(func() int64 { return *now }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestEndToEndDonationFlow(t *testing.T) {
	now := int64(100)
	c := newTestCore(t, &now)
	ctx := context.Background()

	orgID, err := c.RegisterOrganization(ctx, "Org A", "R1", "T1", "0xA")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.VerifyOrganization(ctx, orgID, admin); err != nil {
		t.Fatal(err)
	}
	campID, err := c.CreateCampaign(ctx, orgID, "Water Wells", "Clean water", 100, 200, "0xA")
	if err != nil {
		t.Fatal(err)
	}

	now = 150
	donID, err := c.RecordDonation(ctx, campID, 50, "pay-001", "0xDONOR")
	if err != nil {
		t.Fatal(err)
	}
	if donID != 1 {
		t.Fatalf("donation id = %d, want 1", donID)
	}
	d, err := c.Donation(donID)
	if err != nil {
		t.Fatal(err)
	}
	if d.RecordedAt != 150 || d.Amount != 50 {
		t.Fatalf("unexpected donation: %+v", d)
	}

	// past the campaign window the time gate rejects even though the
	// manual flag is still on
	now = 250
	if camp, _ := c.Campaign(campID); !camp.Active {
		t.Fatal("manual flag should still be on")
	}
	if _, err := c.RecordDonation(ctx, campID, 50, "pay-002", "0xDONOR"); !errors.Is(err, donation.ErrCampaignInactive) {
		t.Fatalf("expected ErrCampaignInactive, got %v", err)
	}
}

func TestDuplicateRegistrationWhileActive(t *testing.T) {
	now := int64(100)
	c := newTestCore(t, &now)
	ctx := context.Background()

	if _, err := c.RegisterOrganization(ctx, "Org A", "R1", "T1", "0xA"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RegisterOrganization(ctx, "Org B", "R1", "T2", "0xB"); !errors.Is(err, identity.ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
}

func TestUnauthorizedDeactivateLeavesStateIntact(t *testing.T) {
	now := int64(100)
	c := newTestCore(t, &now)
	ctx := context.Background()

	orgID, _ := c.RegisterOrganization(ctx, "Org A", "R1", "T1", "0xA")
	if err := c.VerifyOrganization(ctx, orgID, admin); err != nil {
		t.Fatal(err)
	}
	campID, _ := c.CreateCampaign(ctx, orgID, "Water Wells", "", 100, 200, "0xA")

	if err := c.DeactivateCampaign(ctx, campID, "0xX"); !errors.Is(err, campaign.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	camp, _ := c.Campaign(campID)
	if !camp.Active {
		t.Fatal("unauthorized caller changed campaign state")
	}
}

func TestRejectedOrgHistorySurvives(t *testing.T) {
	now := int64(100)
	c := newTestCore(t, &now)
	ctx := context.Background()

	orgID, _ := c.RegisterOrganization(ctx, "Org A", "R1", "T1", "0xA")
	c.VerifyOrganization(ctx, orgID, admin)
	campID, _ := c.CreateCampaign(ctx, orgID, "Water Wells", "", 100, 200, "0xA")
	now = 150
	donID, err := c.RecordDonation(ctx, campID, 50, "pay-001", "0xDONOR")
	if err != nil {
		t.Fatal(err)
	}

	if err := c.RejectOrganization(ctx, orgID, admin); err != nil {
		t.Fatal(err)
	}

	// history intact
	if _, err := c.Campaign(campID); err != nil {
		t.Fatalf("campaign lost after org rejection: %v", err)
	}
	if _, err := c.Donation(donID); err != nil {
		t.Fatalf("donation lost after org rejection: %v", err)
	}
	// slot reuse
	if _, err := c.RegisterOrganization(ctx, "Org A2", "R1", "T1", "0xA"); err != nil {
		t.Fatalf("slot reuse after reject failed: %v", err)
	}
}

func TestAuditLogRecordsRejectionsInTotalOrder(t *testing.T) {
	now := int64(100)
	c := newTestCore(t, &now)
	ctx := context.Background()

	c.RegisterOrganization(ctx, "Org A", "R1", "T1", "0xA")            // seq 1, committed
	c.RegisterOrganization(ctx, "Org B", "R1", "T2", "0xB")            // seq 2, rejected
	c.VerifyOrganization(ctx, 1, "0xMALLORY")                          // seq 3, rejected
	c.VerifyOrganization(ctx, 1, admin)                                // seq 4, committed
	c.CreateCampaign(ctx, 1, "Water Wells", "", 100, 200, "0xA")       // seq 5, committed

	entries, _ := c.AuditEntries(100, 0)
	if len(entries) != 5 {
		t.Fatalf("expected 5 audit entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Sequence != uint64(i+1) {
			t.Fatalf("sequence gap at %d: %+v", i, entries)
		}
	}
	if entries[1].Outcome != audit.OutcomeRejected || entries[1].ErrorKind != "duplicate_identity" {
		t.Fatalf("unexpected rejection entry: %+v", entries[1])
	}
	if entries[2].ErrorKind != "unauthorized" || entries[2].Caller != "0xMALLORY" {
		t.Fatalf("unexpected rejection entry: %+v", entries[2])
	}
	if entries[3].Outcome != audit.OutcomeCommitted {
		t.Fatalf("unexpected verify entry: %+v", entries[3])
	}
	// rejected attempts carry no assigned id
	if _, ok := entries[1].Args["organization_id"]; ok {
		t.Fatalf("rejected register must not carry an id: %+v", entries[1].Args)
	}
	if entries[4].Args["campaign_id"] != "1" {
		t.Fatalf("committed create must carry the id: %+v", entries[4].Args)
	}
}

func TestConcurrentConflictingRegistrations(t *testing.T) {
	now := int64(100)
	c := newTestCore(t, &now)
	ctx := context.Background()

	var wg sync.WaitGroup
	N := 20
	errs := make([]error, N)
	for i := 0; i < N; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.RegisterOrganization(ctx, "Racer", "R1", "T1", "0xA")
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, identity.ErrDuplicateIdentity):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("serialization must admit exactly one winner, got %d", wins)
	}
	if c.OrganizationCount() != 1 {
		t.Fatalf("count = %d, want 1", c.OrganizationCount())
	}
	entries, _ := c.AuditEntries(100, 0)
	if len(entries) != N {
		t.Fatalf("every attempt must be audited: %d entries for %d attempts", len(entries), N)
	}
}

func TestVerifyIdempotenceThroughCore(t *testing.T) {
	now := int64(100)
	c := newTestCore(t, &now)
	ctx := context.Background()

	orgID, _ := c.RegisterOrganization(ctx, "Org A", "R1", "T1", "0xA")
	if err := c.VerifyOrganization(ctx, orgID, admin); err != nil {
		t.Fatal(err)
	}
	after, _ := c.Organization(orgID)

	if err := c.VerifyOrganization(ctx, orgID, admin); !errors.Is(err, identity.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
	again, _ := c.Organization(orgID)
	if after != again {
		t.Fatalf("state changed by a rejected verify: %+v vs %+v", after, again)
	}
}

func TestTransferAuthorityThroughCore(t *testing.T) {
	now := int64(100)
	c := newTestCore(t, &now)
	ctx := context.Background()

	if err := c.TransferAuthority(ctx, "0xNEW", "0xMALLORY"); !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := c.TransferAuthority(ctx, "0xNEW", admin); err != nil {
		t.Fatal(err)
	}
	if c.Authority() != "0xNEW" {
		t.Fatalf("authority = %q, want 0xNEW", c.Authority())
	}

	orgID, _ := c.RegisterOrganization(ctx, "Org A", "R1", "T1", "0xA")
	if err := c.VerifyOrganization(ctx, orgID, admin); !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("former authority must lose the capability, got %v", err)
	}
	if err := c.VerifyOrganization(ctx, orgID, "0xNEW"); err != nil {
		t.Fatal(err)
	}
}
