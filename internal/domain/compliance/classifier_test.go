package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medregula/casetrack/internal/domain/cases"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		days     int
		caseType cases.CaseType
		want     cases.AlertTier
	}{
		{"onco at critical boundary", 5, cases.CaseTypeOncological, cases.TierCritical},
		{"onco just above critical", 6, cases.CaseTypeOncological, cases.TierAttention},
		{"onco at attention boundary", 10, cases.CaseTypeOncological, cases.TierAttention},
		{"onco just above attention", 11, cases.CaseTypeOncological, cases.TierInfo},
		{"onco overdue", -1, cases.CaseTypeOncological, cases.TierCritical},
		{"onco zero days", 0, cases.CaseTypeOncological, cases.TierCritical},
		{"general at critical boundary", 10, cases.CaseTypeGeneral, cases.TierCritical},
		{"general just above critical", 11, cases.CaseTypeGeneral, cases.TierAttention},
		{"general at attention boundary", 20, cases.CaseTypeGeneral, cases.TierAttention},
		{"general just above attention", 21, cases.CaseTypeGeneral, cases.TierInfo},
		{"general deeply overdue", -40, cases.CaseTypeGeneral, cases.TierCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.days, tt.caseType))
		})
	}
}
