package campaign

import (
	"errors"
	"strings"
	"sync"

	"giveledger.org/internal/identity"
)

// Campaign is a fundraising campaign owned by a verified organization.
// StartTime and EndTime are logical timestamps (unix seconds). Active is the
// manual flag; whether donations are accepted additionally depends on the
// time window, see IsEffectivelyActive.
type Campaign struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	StartTime      int64  `json:"start_time"`
	EndTime        int64  `json:"end_time"`
	Active         bool   `json:"active"`
}

var (
	ErrNotFound        = errors.New("campaign: not found")
	ErrUnauthorized    = errors.New("campaign: unauthorized")
	ErrNotVerified     = errors.New("campaign: organization not verified")
	ErrInvalidWindow   = errors.New("campaign: end time must be after start time")
	ErrAlreadyInactive = errors.New("campaign: already inactive")
	ErrInvalidInput    = errors.New("campaign: invalid input")
)

// OrgDirectory is the read-only view of the organization registry the
// campaign registry needs for authorization. Authorization is re-derived
// through it on every call rather than cached, so an organization rejected
// after creating campaigns cannot be used to create new ones.
type OrgDirectory interface {
	ByID(id int64) (identity.Organization, error)
}

// Registry owns the campaign collection. Campaigns are never deleted and
// never reactivated.
type Registry struct {
	mu     sync.RWMutex
	orgs   OrgDirectory
	nextID int64
	camps  map[int64]*Campaign
	order  []int64
	byOrg  map[int64][]int64
}

// NewRegistry creates a campaign registry backed by the given organization
// directory.
func NewRegistry(orgs OrgDirectory) *Registry {
	return &Registry{
		orgs:   orgs,
		nextID: 1,
		camps:  make(map[int64]*Campaign),
		byOrg:  make(map[int64][]int64),
	}
}

// Create registers a new active campaign for a verified organization. The
// caller must be the organization's controlling address.
func (r *Registry) Create(organizationID int64, title, description string, startTime, endTime int64, caller string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, ErrInvalidInput
	}

	org, err := r.orgs.ByID(organizationID)
	if err != nil {
		return 0, ErrNotFound
	}
	if caller != org.ControllingAddress {
		return 0, ErrUnauthorized
	}
	if !org.Verified || !org.Active {
		return 0, ErrNotVerified
	}
	if endTime <= startTime {
		return 0, ErrInvalidWindow
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	c := &Campaign{
		ID:             id,
		OrganizationID: organizationID,
		Title:          title,
		Description:    strings.TrimSpace(description),
		StartTime:      startTime,
		EndTime:        endTime,
		Active:         true,
	}
	r.camps[id] = c
	r.order = append(r.order, id)
	r.byOrg[organizationID] = append(r.byOrg[organizationID], id)
	return id, nil
}

// Deactivate turns a campaign off. Only the owning organization's
// controlling address may call it, and a second call is an error rather
// than a silent no-op.
func (r *Registry) Deactivate(id int64, caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.camps[id]
	if !ok {
		return ErrNotFound
	}
	org, err := r.orgs.ByID(c.OrganizationID)
	if err != nil {
		return ErrUnauthorized
	}
	if caller != org.ControllingAddress {
		return ErrUnauthorized
	}
	if !c.Active {
		return ErrAlreadyInactive
	}
	c.Active = false
	return nil
}

// IsEffectivelyActive reports whether the campaign accepts donations at the
// given logical time: the manual flag is on and the end time has not passed.
func (r *Registry) IsEffectivelyActive(id int64, now int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.camps[id]
	if !ok {
		return false, ErrNotFound
	}
	return c.Active && now <= c.EndTime, nil
}

// ByID returns the campaign with the given id.
func (r *Registry) ByID(id int64) (Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.camps[id]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return *c, nil
}

// ByOrganization returns the organization's campaigns in creation order.
// Campaigns of rejected organizations remain listed; history is not
// retroactively invalidated.
func (r *Registry) ByOrganization(organizationID int64) []Campaign {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byOrg[organizationID]
	out := make([]Campaign, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.camps[id])
	}
	return out
}

// Count returns the number of campaigns ever created.
func (r *Registry) Count() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID - 1
}
