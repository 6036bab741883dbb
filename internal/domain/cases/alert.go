package cases

import (
	"time"
)

// AlertTier classifies deadline urgency for listings and notifications.
type AlertTier string

const (
	TierInfo      AlertTier = "INFO"
	TierAttention AlertTier = "ATTENTION"
	TierCritical  AlertTier = "CRITICAL"
)

// Alert is the one-to-one urgency record for a case.  It is recomputed and
// upserted by the compliance controller every time the case or its executions
// change; callers never mutate it directly except to acknowledge.
type Alert struct {
	CaseID        string    `json:"case_id"`
	DaysRemaining int       `json:"days_remaining"`
	Tier          AlertTier `json:"tier"`
	Acknowledged  bool      `json:"acknowledged"`
	UpdatedAt     time.Time `json:"updated_at"`
}
