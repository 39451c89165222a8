package httpapi

import (
	"net/http"
	"strconv"
	"strings"
)

type createCampaignRequest struct {
	OrganizationID int64  `json:"organization_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	StartTime      int64  `json:"start_time"`
	EndTime        int64  `json:"end_time"`
}

func (a *API) handleCampaignsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createCampaign(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleCampaignResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/campaigns/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch {
	case path == "count":
		a.requireGet(w, r, func() {
			writeJSON(w, http.StatusOK, map[string]any{"count": a.ledger.CampaignCount()})
		})
		return
	case strings.HasPrefix(path, "organization/"):
		a.requireGet(w, r, func() {
			orgID, err := parseID(strings.TrimPrefix(path, "organization/"))
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"organization_id": orgID,
				"campaigns":       a.ledger.CampaignsByOrganization(orgID),
			})
		})
		return
	}

	if rawID, ok := strings.CutSuffix(path, "/active"); ok {
		a.campaignActive(w, r, rawID)
		return
	}
	if rawID, ok := strings.CutSuffix(path, "/deactivate"); ok {
		a.deactivateCampaign(w, r, rawID)
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
		c, lookupErr := a.ledger.Campaign(id)
		if lookupErr != nil {
			handleLedgerError(w, r, lookupErr)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})
}

func (a *API) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.OrganizationID <= 0 {
		writeError(w, r, http.StatusBadRequest, "organization_id is required")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}
	caller, ok := a.caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "caller identity required")
		return
	}

	id, err := a.ledger.CreateCampaign(r.Context(), req.OrganizationID, req.Title, req.Description, req.StartTime, req.EndTime, caller)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/campaigns/"+formatPathID(id))
	writeJSON(w, http.StatusCreated, map[string]any{"campaign_id": id})
}

func (a *API) campaignActive(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, err := parseID(rawID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var active bool
	var lookupErr error
	if atParam := strings.TrimSpace(r.URL.Query().Get("at")); atParam != "" {
		at, parseErr := strconv.ParseInt(atParam, 10, 64)
		if parseErr != nil {
			writeError(w, r, http.StatusBadRequest, "at must be a unix timestamp")
			return
		}
		active, lookupErr = a.ledger.CampaignActive(id, at)
	} else {
		active, lookupErr = a.ledger.CampaignActiveNow(id)
	}
	if lookupErr != nil {
		handleLedgerError(w, r, lookupErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaign_id": id, "active": active})
}

func (a *API) deactivateCampaign(w http.ResponseWriter, r *http.Request, rawID string) {
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
	if err := a.ledger.DeactivateCampaign(r.Context(), id, caller); err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaign_id": id, "active": false})
}
