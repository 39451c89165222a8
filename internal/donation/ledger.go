package donation

import (
	"errors"
	"strings"
	"sync"
)

// Donation is an immutable, append-only record of a contribution against a
// campaign. RecordedAt is ledger-assigned, never caller-supplied. Amount is
// in the smallest currency unit.
type Donation struct {
	ID                int64  `json:"id"`
	CampaignID        int64  `json:"campaign_id"`
	DonorIdentity     string `json:"donor_identity"`
	Amount            uint64 `json:"amount"`
	ExternalReference string `json:"external_reference"`
	RecordedAt        int64  `json:"recorded_at"`
}

var (
	ErrNotFound         = errors.New("donation: not found")
	ErrCampaignInactive = errors.New("donation: campaign inactive")
	ErrInvalidAmount    = errors.New("donation: amount must be > 0")
	ErrInvalidInput     = errors.New("donation: invalid input")
)

// CampaignGate answers whether a campaign accepts donations at a logical
// time. The campaign registry satisfies it directly.
type CampaignGate interface {
	IsEffectivelyActive(id int64, now int64) (bool, error)
}

// Ledger owns the donation collection. There is no update or delete path;
// once committed a record is permanent.
type Ledger struct {
	mu         sync.RWMutex
	campaigns  CampaignGate
	nextID     int64
	dons       map[int64]*Donation
	order      []int64
	byCampaign map[int64][]int64
	byDonor    map[string][]int64
}

// NewLedger creates a donation ledger gated by the given campaign registry.
func NewLedger(campaigns CampaignGate) *Ledger {
	return &Ledger{
		campaigns:  campaigns,
		nextID:     1,
		dons:       make(map[int64]*Donation),
		byCampaign: make(map[int64][]int64),
		byDonor:    make(map[string][]int64),
	}
}

// Record appends a donation. The campaign must be effectively active at the
// given logical time and the amount strictly positive.
func (l *Ledger) Record(campaignID int64, amount uint64, externalReference, donorIdentity string, now int64) (int64, error) {
	donorIdentity = strings.TrimSpace(donorIdentity)
	if donorIdentity == "" {
		return 0, ErrInvalidInput
	}

	active, err := l.campaigns.IsEffectivelyActive(campaignID, now)
	if err != nil {
		return 0, ErrNotFound
	}
	if !active {
		return 0, ErrCampaignInactive
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	d := &Donation{
		ID:                id,
		CampaignID:        campaignID,
		DonorIdentity:     donorIdentity,
		Amount:            amount,
		ExternalReference: strings.TrimSpace(externalReference),
		RecordedAt:        now,
	}
	l.dons[id] = d
	l.order = append(l.order, id)
	l.byCampaign[campaignID] = append(l.byCampaign[campaignID], id)
	l.byDonor[donorIdentity] = append(l.byDonor[donorIdentity], id)
	return id, nil
}

// ByID returns the donation with the given id.
func (l *Ledger) ByID(id int64) (Donation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.dons[id]
	if !ok {
		return Donation{}, ErrNotFound
	}
	return *d, nil
}

// ByCampaign returns a campaign's donations in insertion order.
func (l *Ledger) ByCampaign(campaignID int64) []Donation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(l.byCampaign[campaignID])
}

// ByDonor returns a donor's donations in insertion order. Secondary index;
// not part of the core contract but cheap to maintain under the same lock.
func (l *Ledger) ByDonor(donorIdentity string) []Donation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(l.byDonor[strings.TrimSpace(donorIdentity)])
}

func (l *Ledger) collect(ids []int64) []Donation {
	out := make([]Donation, 0, len(ids))
	for _, id := range ids {
		out = append(out, *l.dons[id])
	}
	return out
}

// Count returns the number of donations ever recorded.
func (l *Ledger) Count() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextID - 1
}
