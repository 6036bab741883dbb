package compliance

import (
	"github.com/medregula/casetrack/internal/domain/cases"
)

// Tier thresholds in days remaining, inclusive.  Oncological cases escalate
// twice as fast as general ones; an overdue case is always critical because
// daysRemaining is negative.
const (
	oncoCriticalDays     = 5
	oncoAttentionDays    = 10
	generalCriticalDays  = 10
	generalAttentionDays = 20
)

// Classify maps days remaining until the effective deadline to an alert tier
// for the given case type.
func Classify(daysRemaining int, caseType cases.CaseType) cases.AlertTier {
	critical, attention := generalCriticalDays, generalAttentionDays
	if caseType == cases.CaseTypeOncological {
		critical, attention = oncoCriticalDays, oncoAttentionDays
	}
	switch {
	case daysRemaining <= critical:
		return cases.TierCritical
	case daysRemaining <= attention:
		return cases.TierAttention
	default:
		return cases.TierInfo
	}
}
