package escalation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fundportal/internal/model"
)

func TestResolveRecipient(t *testing.T) {
	project := model.Project{
		ID:                7,
		State:             "Karnataka",
		District:          "Mysuru",
		ExecutingAgencyID: 101,
	}

	tests := []struct {
		name  string
		level int
		want  Recipient
		ok    bool
	}{
		{
			name:  "level 1 goes to the executing agency",
			level: 1,
			want:  Recipient{UserID: 101},
			ok:    true,
		},
		{
			name:  "level 2 goes to the district officer",
			level: 2,
			want: Recipient{Query: RoleQuery{
				Role: "district_officer", State: "Karnataka", District: "Mysuru",
			}},
			ok: true,
		},
		{
			name:  "level 3 goes to the state nodal officer",
			level: 3,
			want: Recipient{Query: RoleQuery{
				Role: "state_nodal", State: "Karnataka",
			}},
			ok: true,
		},
		{
			name:  "level 4 goes to any central admin",
			level: 4,
			want:  Recipient{Query: RoleQuery{Role: "central_admin"}},
			ok:    true,
		},
		{
			name:  "level 0 has no recipient",
			level: 0,
		},
		{
			name:  "level 5 has no recipient",
			level: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveRecipient(tt.level, project)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
