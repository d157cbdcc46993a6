package session

const (
	DefaultSource   = "Orgánico"
	DefaultCampaign = "No especificado"
)

// Attribution records where a lead came from. A source from the landing URL
// beats the first call-to-action clicked.
type Attribution struct {
	URLSource string `json:"urlSource,omitempty"`
	CTASource string `json:"ctaSource,omitempty"`
	Campaign  string `json:"campaign,omitempty"`
}

// Source returns the effective lead source.
func (a Attribution) Source() string {
	switch {
	case a.URLSource != "":
		return a.URLSource
	case a.CTASource != "":
		return a.CTASource
	default:
		return DefaultSource
	}
}

// CampaignName returns the campaign or its default.
func (a Attribution) CampaignName() string {
	if a.Campaign == "" {
		return DefaultCampaign
	}
	return a.Campaign
}

// Attribution returns the session's attribution.
func (s *Session) Attribution() Attribution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attribution
}

// ClickCTA records the first call-to-action used. Later clicks are ignored.
func (s *Session) ClickCTA(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || s.attribution.CTASource != "" {
		return
	}
	s.attribution.CTASource = id
}
