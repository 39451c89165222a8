package httpapi

import (
	"net/http"
	"strings"
)

type recordDonationRequest struct {
	CampaignID        int64  `json:"campaign_id"`
	Amount            uint64 `json:"amount"`
	ExternalReference string `json:"external_reference"`
}

func (a *API) handleDonationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.recordDonation(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleDonationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/donations/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch {
	case path == "count":
		a.requireGet(w, r, func() {
			writeJSON(w, http.StatusOK, map[string]any{"count": a.ledger.DonationCount()})
		})
		return
	case strings.HasPrefix(path, "campaign/"):
		a.requireGet(w, r, func() {
			campaignID, err := parseID(strings.TrimPrefix(path, "campaign/"))
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"campaign_id": campaignID,
				"donations":   a.ledger.DonationsByCampaign(campaignID),
			})
		})
		return
	case strings.HasPrefix(path, "donor/"):
		a.requireGet(w, r, func() {
			donor := strings.TrimPrefix(path, "donor/")
			if strings.TrimSpace(donor) == "" {
				writeError(w, r, http.StatusBadRequest, "donor identity is required")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"donor":     donor,
				"donations": a.ledger.DonationsByDonor(donor),
			})
		})
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
		d, lookupErr := a.ledger.Donation(id)
		if lookupErr != nil {
			handleLedgerError(w, r, lookupErr)
			return
		}
		writeJSON(w, http.StatusOK, d)
	})
}

func (a *API) recordDonation(w http.ResponseWriter, r *http.Request) {
	var req recordDonationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.CampaignID <= 0 {
		writeError(w, r, http.StatusBadRequest, "campaign_id is required")
		return
	}
	if len(req.ExternalReference) > 256 {
		writeError(w, r, http.StatusBadRequest, "external_reference too long")
		return
	}
	caller, ok := a.caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "caller identity required")
		return
	}

	id, err := a.ledger.RecordDonation(r.Context(), req.CampaignID, req.Amount, req.ExternalReference, caller)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/donations/"+formatPathID(id))
	writeJSON(w, http.StatusCreated, map[string]any{"donation_id": id})
}
