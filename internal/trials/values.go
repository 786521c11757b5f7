package trials

import "strings"

// All disables a categorical filter.
const All = "All"

const (
	PhaseEarly1 = "EARLY_PHASE1"
	Phase1      = "PHASE1"
	Phase2      = "PHASE2"
	Phase3      = "PHASE3"
	Phase4      = "PHASE4"
	PhaseNA     = "NA"
)

const (
	StatusRecruiting            = "RECRUITING"
	StatusNotYetRecruiting      = "NOT_YET_RECRUITING"
	StatusActiveNotRecruiting   = "ACTIVE_NOT_RECRUITING"
	StatusEnrollingByInvitation = "ENROLLING_BY_INVITATION"
	StatusCompleted             = "COMPLETED"
	StatusSuspended             = "SUSPENDED"
	StatusTerminated            = "TERMINATED"
	StatusWithdrawn             = "WITHDRAWN"
	StatusUnknown               = "UNKNOWN"
)

// Phases lists the selectable phase tokens.
var Phases = []string{Phase1, Phase2, Phase3, Phase4, PhaseEarly1, PhaseNA}

// Statuses lists the recruitment statuses offered for selection. The registry may return others.
var Statuses = []string{
	StatusRecruiting,
	StatusCompleted,
	StatusActiveNotRecruiting,
	StatusTerminated,
	StatusNotYetRecruiting,
	StatusEnrollingByInvitation,
	StatusSuspended,
	StatusWithdrawn,
	StatusUnknown,
}

// NormalizeToken trims and upper-cases a categorical value. "All" in any case is returned as All.
func NormalizeToken(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, All) {
		return All
	}
	return strings.ToUpper(s)
}

// IsAll reports whether a categorical selection disables its filter.
func IsAll(s string) bool {
	s = NormalizeToken(s)
	return s == "" || s == All
}
