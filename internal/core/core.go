package core

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"giveledger.org/internal/audit"
	"giveledger.org/internal/campaign"
	"giveledger.org/internal/donation"
	"giveledger.org/internal/identity"
	"giveledger.org/internal/obs"
)

// Operation kinds recorded in the audit log.
const (
	OpRegisterOrganization = "organization.register"
	OpVerifyOrganization   = "organization.verify"
	OpRejectOrganization   = "organization.reject"
	OpTransferAuthority    = "authority.transfer"
	OpCreateCampaign       = "campaign.create"
	OpDeactivateCampaign   = "campaign.deactivate"
	OpRecordDonation       = "donation.record"
)

// Archiver persists committed state and audit entries to durable storage.
// The in-memory core remains the source of truth; archiving is best-effort
// and never fails a mutation.
type Archiver interface {
	AppendAudit(ctx context.Context, entry audit.Entry) error
	SaveOrganization(ctx context.Context, org identity.Organization) error
	SaveCampaign(ctx context.Context, c campaign.Campaign) error
	SaveDonation(ctx context.Context, d donation.Donation) error
}

// Core presents the three registries as one consistently-ordered state
// machine. All mutations are admitted one at a time through a single lock:
// a mutation is fully validated and committed (or rejected) before the next
// is considered, and the audit sequence follows that order exactly. Reads
// bypass the lock and see the most recently committed state.
type Core struct {
	mu sync.Mutex

	orgs      *identity.Registry
	campaigns *campaign.Registry
	donations *donation.Ledger
	log       *audit.Log
	archive   Archiver
	now       func() int64
}

// Option configures Core behavior.
type Option func(*Core)

// WithClock overrides the logical time source (useful for tests).
func WithClock(fn func() int64) Option {
	return func(c *Core) {
		if fn != nil {
			c.now = fn
		}
	}
}

// WithArchiver attaches durable storage for audit entries and snapshots.
func WithArchiver(a Archiver) Option {
	return func(c *Core) { c.archive = a }
}

// New constructs the core with the given initial administrative authority.
func New(authority string, opts ...Option) (*Core, error) {
	orgs, err := identity.NewRegistry(authority)
	if err != nil {
		return nil, err
	}
	campaigns := campaign.NewRegistry(orgs)
	c := &Core{
		orgs:      orgs,
		campaigns: campaigns,
		donations: donation.NewLedger(campaigns),
		log:       audit.NewLog(),
		now:       func() int64 { return time.Now().UTC().Unix() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RegisterOrganization creates an unverified organization.
func (c *Core) RegisterOrganization(ctx context.Context, name, registrationNumber, taxID, controllingAddress string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.orgs.Register(name, registrationNumber, taxID, controllingAddress)
	c.commitAudit(ctx, OpRegisterOrganization, controllingAddress, map[string]string{
		"name":                name,
		"registration_number": registrationNumber,
		"tax_id":              taxID,
		"organization_id":     formatID(id),
	}, err)
	if err != nil {
		return 0, err
	}
	c.archiveOrganization(ctx, id)
	return id, nil
}

// VerifyOrganization marks an organization verified; authority only.
func (c *Core) VerifyOrganization(ctx context.Context, id int64, caller string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.orgs.Verify(id, caller)
	c.commitAudit(ctx, OpVerifyOrganization, caller, map[string]string{
		"organization_id": formatID(id),
	}, err)
	if err != nil {
		return err
	}
	c.archiveOrganization(ctx, id)
	return nil
}

// RejectOrganization removes an organization from the active set; authority only.
func (c *Core) RejectOrganization(ctx context.Context, id int64, caller string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.orgs.Reject(id, caller)
	c.commitAudit(ctx, OpRejectOrganization, caller, map[string]string{
		"organization_id": formatID(id),
	}, err)
	if err != nil {
		return err
	}
	c.archiveOrganization(ctx, id)
	return nil
}

// TransferAuthority replaces the administrative authority atomically.
func (c *Core) TransferAuthority(ctx context.Context, newAuthority, caller string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.orgs.TransferAuthority(newAuthority, caller)
	c.commitAudit(ctx, OpTransferAuthority, caller, map[string]string{
		"new_authority": newAuthority,
	}, err)
	return err
}

// CreateCampaign registers a campaign for a verified organization.
func (c *Core) CreateCampaign(ctx context.Context, organizationID int64, title, description string, startTime, endTime int64, caller string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.campaigns.Create(organizationID, title, description, startTime, endTime, caller)
	c.commitAudit(ctx, OpCreateCampaign, caller, map[string]string{
		"organization_id": formatID(organizationID),
		"title":           title,
		"start_time":      strconv.FormatInt(startTime, 10),
		"end_time":        strconv.FormatInt(endTime, 10),
		"campaign_id":     formatID(id),
	}, err)
	if err != nil {
		return 0, err
	}
	c.archiveCampaign(ctx, id)
	return id, nil
}

// DeactivateCampaign turns a campaign off; owning address only.
func (c *Core) DeactivateCampaign(ctx context.Context, id int64, caller string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.campaigns.Deactivate(id, caller)
	c.commitAudit(ctx, OpDeactivateCampaign, caller, map[string]string{
		"campaign_id": formatID(id),
	}, err)
	if err != nil {
		return err
	}
	c.archiveCampaign(ctx, id)
	return nil
}

// RecordDonation appends a donation at the current logical time.
func (c *Core) RecordDonation(ctx context.Context, campaignID int64, amount uint64, externalReference, donorIdentity string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	id, err := c.donations.Record(campaignID, amount, externalReference, donorIdentity, now)
	c.commitAudit(ctx, OpRecordDonation, donorIdentity, map[string]string{
		"campaign_id":        formatID(campaignID),
		"amount":             strconv.FormatUint(amount, 10),
		"external_reference": externalReference,
		"donation_id":        formatID(id),
	}, err)
	if err != nil {
		return 0, err
	}
	c.archiveDonation(ctx, id)
	return id, nil
}

// commitAudit appends one audit entry for an attempted mutation. Called
// with the mutation lock held so sequence order equals commit order.
func (c *Core) commitAudit(ctx context.Context, operation, caller string, args map[string]string, opErr error) {
	outcome := audit.OutcomeCommitted
	kind := ""
	if opErr != nil {
		outcome = audit.OutcomeRejected
		kind = ErrorKind(opErr)
		delete(args, idArgKey(operation))
	}
	entry := c.log.Append(audit.Entry{
		LogicalTime: c.now(),
		Operation:   operation,
		Caller:      caller,
		Args:        args,
		Outcome:     outcome,
		ErrorKind:   kind,
	})
	obs.ObserveMutation(operation, outcome)
	if c.archive != nil {
		if err := c.archive.AppendAudit(ctx, entry); err != nil {
			obs.LogRequest(map[string]any{"level": "error", "msg": "archive audit entry", "error": err.Error()})
		}
	}
}

// idArgKey names the arg that carries the assigned id, dropped on rejection
// since no id was assigned.
func idArgKey(operation string) string {
	switch operation {
	case OpRegisterOrganization:
		return "organization_id"
	case OpCreateCampaign:
		return "campaign_id"
	case OpRecordDonation:
		return "donation_id"
	default:
		return ""
	}
}

func (c *Core) archiveOrganization(ctx context.Context, id int64) {
	if c.archive == nil {
		return
	}
	org, err := c.orgs.ByID(id)
	if err != nil {
		return
	}
	if err := c.archive.SaveOrganization(ctx, org); err != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "archive organization", "error": err.Error()})
	}
}

func (c *Core) archiveCampaign(ctx context.Context, id int64) {
	if c.archive == nil {
		return
	}
	camp, err := c.campaigns.ByID(id)
	if err != nil {
		return
	}
	if err := c.archive.SaveCampaign(ctx, camp); err != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "archive campaign", "error": err.Error()})
	}
}

func (c *Core) archiveDonation(ctx context.Context, id int64) {
	if c.archive == nil {
		return
	}
	d, err := c.donations.ByID(id)
	if err != nil {
		return
	}
	if err := c.archive.SaveDonation(ctx, d); err != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "archive donation", "error": err.Error()})
	}
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// ErrorKind maps a registry error to its stable audit/metrics label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, identity.ErrDuplicateIdentity):
		return "duplicate_identity"
	case errors.Is(err, identity.ErrAlreadyVerified):
		return "already_verified"
	case errors.Is(err, campaign.ErrNotVerified):
		return "not_verified"
	case errors.Is(err, campaign.ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(err, campaign.ErrAlreadyInactive):
		return "already_inactive"
	case errors.Is(err, donation.ErrCampaignInactive):
		return "campaign_inactive"
	case errors.Is(err, donation.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, identity.ErrUnauthorized), errors.Is(err, campaign.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, identity.ErrNotFound), errors.Is(err, campaign.ErrNotFound), errors.Is(err, donation.ErrNotFound):
		return "not_found"
	case errors.Is(err, identity.ErrInvalidInput), errors.Is(err, campaign.ErrInvalidInput), errors.Is(err, donation.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
