package registry

// Study is one raw entry of the registry "studies" list. Only the modules trialscope reads are
// modelled; every level may be absent, so use the accessor methods instead of walking fields.
type Study struct {
	ProtocolSection *ProtocolSection `json:"protocolSection,omitempty"`
}

type ProtocolSection struct {
	Identification    *IdentificationModule    `json:"identificationModule,omitempty"`
	Status            *StatusModule            `json:"statusModule,omitempty"`
	Sponsors          *SponsorsModule          `json:"sponsorCollaboratorsModule,omitempty"`
	Design            *DesignModule            `json:"designModule,omitempty"`
	Eligibility       *EligibilityModule       `json:"eligibilityModule,omitempty"`
	ContactsLocations *ContactsLocationsModule `json:"contactsLocationsModule,omitempty"`
}

type IdentificationModule struct {
	NCTID      string `json:"nctId,omitempty"`
	BriefTitle string `json:"briefTitle,omitempty"`
}

type StatusModule struct {
	OverallStatus string `json:"overallStatus,omitempty"`
}

type SponsorsModule struct {
	LeadSponsor *struct {
		Name string `json:"name,omitempty"`
	} `json:"leadSponsor,omitempty"`
}

type DesignModule struct {
	Phases         []string `json:"phases,omitempty"`
	EnrollmentInfo *struct {
		// Count is left untyped: the registry sends a number but nothing guarantees it.
		Count any `json:"count,omitempty"`
	} `json:"enrollmentInfo,omitempty"`
}

type EligibilityModule struct {
	EligibilityCriteria string `json:"eligibilityCriteria,omitempty"`
}

type ContactsLocationsModule struct {
	Locations []Location `json:"locations,omitempty"`
}

type Location struct {
	Facility string `json:"facility,omitempty"`
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
}

func (s *Study) protocol() *ProtocolSection {
	if s == nil {
		return nil
	}
	return s.ProtocolSection
}

func (s *Study) NCTID() string {
	if p := s.protocol(); p != nil && p.Identification != nil {
		return p.Identification.NCTID
	}
	return ""
}

func (s *Study) BriefTitle() string {
	if p := s.protocol(); p != nil && p.Identification != nil {
		return p.Identification.BriefTitle
	}
	return ""
}

func (s *Study) OverallStatus() string {
	if p := s.protocol(); p != nil && p.Status != nil {
		return p.Status.OverallStatus
	}
	return ""
}

func (s *Study) LeadSponsor() string {
	if p := s.protocol(); p != nil && p.Sponsors != nil && p.Sponsors.LeadSponsor != nil {
		return p.Sponsors.LeadSponsor.Name
	}
	return ""
}

func (s *Study) Phases() []string {
	if p := s.protocol(); p != nil && p.Design != nil {
		return p.Design.Phases
	}
	return nil
}

// EnrollmentCount returns the count exactly as decoded, nil when absent.
func (s *Study) EnrollmentCount() any {
	if p := s.protocol(); p != nil && p.Design != nil && p.Design.EnrollmentInfo != nil {
		return p.Design.EnrollmentInfo.Count
	}
	return nil
}

func (s *Study) EligibilityCriteria() string {
	if p := s.protocol(); p != nil && p.Eligibility != nil {
		return p.Eligibility.EligibilityCriteria
	}
	return ""
}

// FirstCountry returns the country of the first listed site.
func (s *Study) FirstCountry() string {
	if p := s.protocol(); p != nil && p.ContactsLocations != nil && len(p.ContactsLocations.Locations) > 0 {
		return p.ContactsLocations.Locations[0].Country
	}
	return ""
}
