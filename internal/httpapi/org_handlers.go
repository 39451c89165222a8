package httpapi

import (
	"net/http"
	"strings"
)

type registerOrganizationRequest struct {
	Name               string `json:"name"`
	RegistrationNumber string `json:"registration_number"`
	TaxID              string `json:"tax_id"`
	ControllingAddress string `json:"controlling_address"`
}

type transferAuthorityRequest struct {
	NewAuthority string `json:"new_authority"`
}

func (a *API) handleOrganizationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.registerOrganization(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"organizations": a.ledger.Organizations()})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrganizationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/organizations/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch {
	case path == "count":
		a.requireGet(w, r, func() {
			writeJSON(w, http.StatusOK, map[string]any{"count": a.ledger.OrganizationCount()})
		})
		return
	case strings.HasPrefix(path, "wallet/"):
		a.requireGet(w, r, func() {
			org, err := a.ledger.OrganizationByWallet(strings.TrimPrefix(path, "wallet/"))
			if err != nil {
				handleLedgerError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, org)
		})
		return
	case strings.HasPrefix(path, "registration/"):
		a.requireGet(w, r, func() {
			org, err := a.ledger.OrganizationByRegistrationNumber(strings.TrimPrefix(path, "registration/"))
			if err != nil {
				handleLedgerError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, org)
		})
		return
	case strings.HasPrefix(path, "tax/"):
		a.requireGet(w, r, func() {
			org, err := a.ledger.OrganizationByTaxID(strings.TrimPrefix(path, "tax/"))
			if err != nil {
				handleLedgerError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, org)
		})
		return
	}

	if action, ok := strings.CutSuffix(path, "/verify"); ok {
		a.verifyOrganization(w, r, action)
		return
	}
	if action, ok := strings.CutSuffix(path, "/reject"); ok {
		a.rejectOrganization(w, r, action)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	a.requireGet(w, r, func() {
		id, err := parseID(path)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		org, lookupErr := a.ledger.Organization(id)
		if lookupErr != nil {
			handleLedgerError(w, r, lookupErr)
			return
		}
		writeJSON(w, http.StatusOK, org)
	})
}

func (a *API) requireGet(w http.ResponseWriter, r *http.Request, fn func()) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	fn()
}

func (a *API) registerOrganization(w http.ResponseWriter, r *http.Request) {
	var req registerOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller, ok := a.caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "caller identity required")
		return
	}

	// The controlling address is the registrant itself. An explicit body
	// value is accepted but must match the authenticated caller.
	address := strings.TrimSpace(req.ControllingAddress)
	if address == "" {
		address = caller
	} else if address != caller {
		writeError(w, r, http.StatusForbidden, "controlling_address must match the authenticated caller")
		return
	}

	id, err := a.ledger.RegisterOrganization(r.Context(), req.Name, req.RegistrationNumber, req.TaxID, address)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/organizations/"+formatPathID(id))
	writeJSON(w, http.StatusCreated, map[string]any{"organization_id": id})
}

func (a *API) verifyOrganization(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	id, err := parseID(rawID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller, ok := a.caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "caller identity required")
		return
	}
	if err := a.ledger.VerifyOrganization(r.Context(), id, caller); err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organization_id": id, "verified": true})
}

func (a *API) rejectOrganization(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	id, err := parseID(rawID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller, ok := a.caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "caller identity required")
		return
	}
	if err := a.ledger.RejectOrganization(r.Context(), id, caller); err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organization_id": id, "active": false})
}

func (a *API) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authority": a.ledger.Authority()})
}

func (a *API) handleAdminTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req transferAuthorityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.NewAuthority) == "" {
		writeError(w, r, http.StatusBadRequest, "new_authority is required")
		return
	}
	caller, ok := a.caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "caller identity required")
		return
	}
	if err := a.ledger.TransferAuthority(r.Context(), req.NewAuthority, caller); err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authority": strings.TrimSpace(req.NewAuthority)})
}
