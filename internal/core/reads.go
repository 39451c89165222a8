package core

import (
	"giveledger.org/internal/audit"
	"giveledger.org/internal/campaign"
	"giveledger.org/internal/donation"
	"giveledger.org/internal/identity"
)

// Reads bypass the mutation lock; each registry guards its own state and
// returns copies, so readers observe the most recently committed state and
// can never corrupt it.

// Authority returns the current administrative authority address.
func (c *Core) Authority() string { return c.orgs.Authority() }

// Organization returns an organization by id, including rejected ones.
func (c *Core) Organization(id int64) (identity.Organization, error) {
	return c.orgs.ByID(id)
}

// OrganizationByWallet resolves an active organization by controlling address.
func (c *Core) OrganizationByWallet(address string) (identity.Organization, error) {
	return c.orgs.ByWallet(address)
}

// OrganizationByRegistrationNumber resolves an active organization by registration number.
func (c *Core) OrganizationByRegistrationNumber(number string) (identity.Organization, error) {
	return c.orgs.ByRegistrationNumber(number)
}

// OrganizationByTaxID resolves an active organization by tax id.
func (c *Core) OrganizationByTaxID(taxID string) (identity.Organization, error) {
	return c.orgs.ByTaxID(taxID)
}

// Organizations lists every organization in creation order.
func (c *Core) Organizations() []identity.Organization { return c.orgs.List() }

// OrganizationCount returns how many organizations were ever registered.
func (c *Core) OrganizationCount() int64 { return c.orgs.Count() }

// Campaign returns a campaign by id.
func (c *Core) Campaign(id int64) (campaign.Campaign, error) {
	return c.campaigns.ByID(id)
}

// CampaignsByOrganization lists an organization's campaigns in creation order.
func (c *Core) CampaignsByOrganization(organizationID int64) []campaign.Campaign {
	return c.campaigns.ByOrganization(organizationID)
}

// CampaignActive reports effective activity at the given logical time.
func (c *Core) CampaignActive(id int64, at int64) (bool, error) {
	return c.campaigns.IsEffectivelyActive(id, at)
}

// CampaignActiveNow reports effective activity at the core's current clock.
func (c *Core) CampaignActiveNow(id int64) (bool, error) {
	return c.campaigns.IsEffectivelyActive(id, c.now())
}

// CampaignCount returns how many campaigns were ever created.
func (c *Core) CampaignCount() int64 { return c.campaigns.Count() }

// Donation returns a donation by id.
func (c *Core) Donation(id int64) (donation.Donation, error) {
	return c.donations.ByID(id)
}

// DonationsByCampaign lists a campaign's donations in insertion order.
func (c *Core) DonationsByCampaign(campaignID int64) []donation.Donation {
	return c.donations.ByCampaign(campaignID)
}

// DonationsByDonor lists a donor's donations in insertion order.
func (c *Core) DonationsByDonor(donorIdentity string) []donation.Donation {
	return c.donations.ByDonor(donorIdentity)
}

// DonationCount returns how many donations were ever recorded.
func (c *Core) DonationCount() int64 { return c.donations.Count() }

// AuditEntries pages through the audit log in sequence order.
func (c *Core) AuditEntries(limit int, afterSeq uint64) ([]audit.Entry, uint64) {
	return c.log.List(limit, afterSeq)
}
