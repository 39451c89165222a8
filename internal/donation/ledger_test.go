package donation

import (
	"errors"
	"testing"
)

// stubGate is a fixed-window campaign gate: campaign 1 is active through
// time 200, campaign 2 exists but is switched off, everything else is
// unknown.
type stubGate struct{}

func (stubGate) IsEffectivelyActive(id int64, now int64) (bool, error) {
	switch id {
	case 1:
		return now <= 200, nil
	case 2:
		return false, nil
	default:
		return false, errors.New("unknown campaign")
	}
}

func TestRecord(t *testing.T) {
	l := NewLedger(stubGate{})

	id, err := l.Record(1, 50, "pay-001", "0xDONOR", 150)
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Fatalf("first donation id = %d, want 1", id)
	}

	d, err := l.ByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if d.Amount != 50 || d.RecordedAt != 150 || d.CampaignID != 1 || d.ExternalReference != "pay-001" {
		t.Fatalf("unexpected donation: %+v", d)
	}
}

func TestRecordRejections(t *testing.T) {
	l := NewLedger(stubGate{})

	if _, err := l.Record(99, 50, "ref", "0xDONOR", 150); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown campaign: expected ErrNotFound, got %v", err)
	}
	if _, err := l.Record(2, 50, "ref", "0xDONOR", 150); !errors.Is(err, ErrCampaignInactive) {
		t.Fatalf("inactive campaign: expected ErrCampaignInactive, got %v", err)
	}
	if _, err := l.Record(1, 50, "ref", "0xDONOR", 250); !errors.Is(err, ErrCampaignInactive) {
		t.Fatalf("expired window: expected ErrCampaignInactive, got %v", err)
	}
	if _, err := l.Record(1, 0, "ref", "0xDONOR", 150); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.Record(1, 50, "ref", "  ", 150); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank donor: expected ErrInvalidInput, got %v", err)
	}
	if l.Count() != 0 {
		t.Fatalf("rejected records must not commit, count = %d", l.Count())
	}
}

func TestIndexesPreserveInsertionOrder(t *testing.T) {
	l := NewLedger(stubGate{})
	for i, donor := range []string{"0xD1", "0xD2", "0xD1"} {
		if _, err := l.Record(1, uint64(10*(i+1)), "", donor, 150); err != nil {
			t.Fatal(err)
		}
	}

	byCampaign := l.ByCampaign(1)
	if len(byCampaign) != 3 {
		t.Fatalf("expected 3 donations, got %d", len(byCampaign))
	}
	for i, d := range byCampaign {
		if d.ID != int64(i+1) {
			t.Fatalf("insertion order violated: %+v", byCampaign)
		}
	}

	byDonor := l.ByDonor("0xD1")
	if len(byDonor) != 2 || byDonor[0].ID != 1 || byDonor[1].ID != 3 {
		t.Fatalf("unexpected donor index: %+v", byDonor)
	}
	if got := l.ByDonor("0xNOBODY"); len(got) != 0 {
		t.Fatalf("expected no donations, got %+v", got)
	}
	if l.Count() != 3 {
		t.Fatalf("count = %d, want 3", l.Count())
	}
}

func TestRecordsAreImmutableCopies(t *testing.T) {
	l := NewLedger(stubGate{})
	id, _ := l.Record(1, 50, "ref", "0xDONOR", 150)

	d, _ := l.ByID(id)
	d.Amount = 9999

	fresh, _ := l.ByID(id)
	if fresh.Amount != 50 {
		t.Fatalf("ledger state mutated through a query copy: %+v", fresh)
	}
}
