package identity

import (
	"errors"
	"strings"
	"sync"
)

// Organization is a registered fundraising organization. Identity fields are
// immutable after registration; only Verified and Active ever change.
type Organization struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registration_number"`
	TaxID              string `json:"tax_id"`
	ControllingAddress string `json:"controlling_address"`
	Verified           bool   `json:"verified"`
	Active             bool   `json:"active"`
}

var (
	ErrNotFound          = errors.New("identity: not found")
	ErrUnauthorized      = errors.New("identity: unauthorized")
	ErrDuplicateIdentity = errors.New("identity: duplicate identity")
	ErrAlreadyVerified   = errors.New("identity: already verified")
	ErrInvalidInput      = errors.New("identity: invalid input")
)

// Registry owns the organization collection and the single administrative
// authority allowed to verify and reject organizations.
//
// Uniqueness of registration number, tax id and controlling address is
// enforced across active organizations only; rejecting an organization
// releases its slots for reuse. Ids are assigned from a counter that never
// rewinds, so they are never reused even after removals.
type Registry struct {
	mu        sync.RWMutex
	authority string
	nextID    int64
	orgs      map[int64]*Organization
	order     []int64

	// active-only uniqueness indexes
	byWallet map[string]int64
	byReg    map[string]int64
	byTax    map[string]int64
}

// NewRegistry creates a registry with the given administrative authority.
func NewRegistry(authority string) (*Registry, error) {
	authority = strings.TrimSpace(authority)
	if authority == "" {
		return nil, errors.New("identity: administrative authority is required")
	}
	return &Registry{
		authority: authority,
		nextID:    1,
		orgs:      make(map[int64]*Organization),
		byWallet:  make(map[string]int64),
		byReg:     make(map[string]int64),
		byTax:     make(map[string]int64),
	}, nil
}

// Register creates an unverified organization. It fails with
// ErrDuplicateIdentity when any identity field collides with an active
// organization.
func (r *Registry) Register(name, registrationNumber, taxID, controllingAddress string) (int64, error) {
	name = strings.TrimSpace(name)
	registrationNumber = strings.TrimSpace(registrationNumber)
	taxID = strings.TrimSpace(taxID)
	controllingAddress = strings.TrimSpace(controllingAddress)
	if name == "" || registrationNumber == "" || taxID == "" || controllingAddress == "" {
		return 0, ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byReg[registrationNumber]; ok {
		return 0, ErrDuplicateIdentity
	}
	if _, ok := r.byTax[taxID]; ok {
		return 0, ErrDuplicateIdentity
	}
	if _, ok := r.byWallet[controllingAddress]; ok {
		return 0, ErrDuplicateIdentity
	}

	id := r.nextID
	r.nextID++
	org := &Organization{
		ID:                 id,
		Name:               name,
		RegistrationNumber: registrationNumber,
		TaxID:              taxID,
		ControllingAddress: controllingAddress,
		Verified:           false,
		Active:             true,
	}
	r.orgs[id] = org
	r.order = append(r.order, id)
	r.byReg[registrationNumber] = id
	r.byTax[taxID] = id
	r.byWallet[controllingAddress] = id
	return id, nil
}

// Verify marks an organization as verified. Only the administrative
// authority may call it.
func (r *Registry) Verify(id int64, caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.authority {
		return ErrUnauthorized
	}
	org, ok := r.orgs[id]
	if !ok || !org.Active {
		return ErrNotFound
	}
	if org.Verified {
		return ErrAlreadyVerified
	}
	org.Verified = true
	return nil
}

// Reject removes an organization from the active set and releases its
// uniqueness slots. The record itself is kept for historical queries.
func (r *Registry) Reject(id int64, caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.authority {
		return ErrUnauthorized
	}
	org, ok := r.orgs[id]
	if !ok || !org.Active {
		return ErrNotFound
	}
	org.Active = false
	delete(r.byReg, org.RegistrationNumber)
	delete(r.byTax, org.TaxID)
	delete(r.byWallet, org.ControllingAddress)
	return nil
}

// TransferAuthority atomically replaces the administrative authority.
func (r *Registry) TransferAuthority(newAuthority, caller string) error {
	newAuthority = strings.TrimSpace(newAuthority)
	if newAuthority == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.authority {
		return ErrUnauthorized
	}
	r.authority = newAuthority
	return nil
}

// Authority returns the current administrative authority address.
func (r *Registry) Authority() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.authority
}

// ByID returns the organization with the given id. Rejected organizations
// stay visible (Active=false) so historical campaigns keep a resolvable
// owner.
func (r *Registry) ByID(id int64) (Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	org, ok := r.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return *org, nil
}

// ByWallet resolves an active organization by controlling address.
func (r *Registry) ByWallet(address string) (Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fromIndex(r.byWallet, strings.TrimSpace(address))
}

// ByRegistrationNumber resolves an active organization by registration number.
func (r *Registry) ByRegistrationNumber(number string) (Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fromIndex(r.byReg, strings.TrimSpace(number))
}

// ByTaxID resolves an active organization by tax id.
func (r *Registry) ByTaxID(taxID string) (Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fromIndex(r.byTax, strings.TrimSpace(taxID))
}

func (r *Registry) fromIndex(index map[string]int64, key string) (Organization, error) {
	id, ok := index[key]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return *r.orgs[id], nil
}

// List returns all organizations ever registered, in creation order.
func (r *Registry) List() []Organization {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Organization, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.orgs[id])
	}
	return out
}

// Count returns the number of organizations ever registered. Rejections do
// not decrement it; the value mirrors the id counter, not the active set.
func (r *Registry) Count() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID - 1
}
