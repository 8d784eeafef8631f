package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlan_Limits(t *testing.T) {
	tests := []struct {
		plan         Plan
		wantValid    bool
		wantAgents   int
		wantDuration time.Duration
	}{
		{plan: PlanTrial, wantValid: true, wantAgents: 2, wantDuration: 14 * 24 * time.Hour},
		{plan: PlanMonthly, wantValid: true, wantAgents: 5, wantDuration: 30 * 24 * time.Hour},
		{plan: PlanYearly, wantValid: true, wantAgents: 10, wantDuration: 365 * 24 * time.Hour},
		{plan: Plan("weekly"), wantValid: false},
	}
	for _, tt := range tests {
		t.Run(string(tt.plan), func(t *testing.T) {
			assert.Equal(t, tt.wantValid, tt.plan.Valid())
			if tt.wantValid {
				assert.Equal(t, tt.wantAgents, tt.plan.MaxAgents())
				assert.Equal(t, tt.wantDuration, tt.plan.Duration())
			}
		})
	}
}
