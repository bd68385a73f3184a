package chat

// LeadData is the visitor identity captured before chat starts. Set at most
// once per session and immutable afterwards.
type LeadData struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	HubSpotContactID string `json:"hubspotContactId,omitempty"`
}
