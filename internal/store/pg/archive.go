package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"giveledger.org/internal/audit"
	"giveledger.org/internal/campaign"
	"giveledger.org/internal/core"
	"giveledger.org/internal/donation"
	"giveledger.org/internal/identity"
)

// Store archives committed ledger state and the audit trail to Postgres.
// The in-memory core stays authoritative; this is the durable copy the
// schema migrations in migrations/ describe.
type Store struct {
	db *sql.DB
}

var _ core.Archiver = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection (used by tests).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// AppendAudit inserts one audit entry. The sequence column carries a unique
// constraint, so a replayed entry is a no-op rather than a duplicate row.
func (s *Store) AppendAudit(ctx context.Context, entry audit.Entry) error {
	args, err := json.Marshal(entry.Args)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_log(id, sequence, occurred_at, logical_time, operation, caller, args, outcome, error_kind)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		on conflict (sequence) do nothing
	`, entry.ID, entry.Sequence, entry.OccurredAt, entry.LogicalTime, entry.Operation, entry.Caller, args, entry.Outcome, entry.ErrorKind)
	return err
}

// SaveOrganization upserts the organization snapshot. Identity fields never
// change after creation; only verified and active are expected to move.
func (s *Store) SaveOrganization(ctx context.Context, org identity.Organization) error {
	_, err := s.db.ExecContext(ctx, `
		insert into organizations(id, name, registration_number, tax_id, controlling_address, verified, active)
		values ($1,$2,$3,$4,$5,$6,$7)
		on conflict (id) do update
		set verified = excluded.verified, active = excluded.active
	`, org.ID, org.Name, org.RegistrationNumber, org.TaxID, org.ControllingAddress, org.Verified, org.Active)
	return err
}

// SaveCampaign upserts the campaign snapshot; only active ever moves.
func (s *Store) SaveCampaign(ctx context.Context, c campaign.Campaign) error {
	_, err := s.db.ExecContext(ctx, `
		insert into campaigns(id, organization_id, title, description, start_time, end_time, active)
		values ($1,$2,$3,$4,$5,$6,$7)
		on conflict (id) do update
		set active = excluded.active
	`, c.ID, c.OrganizationID, c.Title, c.Description, c.StartTime, c.EndTime, c.Active)
	return err
}

// SaveDonation inserts the immutable donation record; conflicts are ignored
// because donations never change once committed.
func (s *Store) SaveDonation(ctx context.Context, d donation.Donation) error {
	_, err := s.db.ExecContext(ctx, `
		insert into donations(id, campaign_id, donor_identity, amount, external_reference, recorded_at)
		values ($1,$2,$3,$4,$5,$6)
		on conflict (id) do nothing
	`, d.ID, d.CampaignID, d.DonorIdentity, int64(d.Amount), d.ExternalReference, d.RecordedAt)
	return err
}
