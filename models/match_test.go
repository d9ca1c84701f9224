package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{MatchStatusActive, false},
		{MatchStatusRevealed, true},
		{MatchStatusEndedByUser, true},
		{MatchStatusEndedByTimer, true},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			m := Match{Status: tt.status}
			assert.Equal(t, tt.want, m.IsTerminal())
		})
	}
}

func TestParticipantSlot(t *testing.T) {
	m := Match{User1ID: "user-a", User2ID: "user-b"}

	assert.Equal(t, 1, m.ParticipantSlot("user-a"))
	assert.Equal(t, 2, m.ParticipantSlot("user-b"))
	assert.Equal(t, 0, m.ParticipantSlot("user-z"))
	assert.Equal(t, 0, m.ParticipantSlot(""))
}

func TestConsentOf(t *testing.T) {
	m := Match{User1Consent: true, User2Consent: false}

	assert.True(t, m.ConsentOf(1))
	assert.False(t, m.ConsentOf(2))
}

func TestOtherUser(t *testing.T) {
	m := Match{User1ID: "user-a", User2ID: "user-b"}

	assert.Equal(t, "user-b", m.OtherUser("user-a"))
	assert.Equal(t, "user-a", m.OtherUser("user-b"))
}

func TestCreatedAtTime(t *testing.T) {
	m := Match{CreatedAt: "2026-02-14T12:00:00Z"}
	parsed, err := m.CreatedAtTime()
	assert.NoError(t, err)
	assert.Equal(t, 2026, parsed.Year())

	m.CreatedAt = "garbage"
	_, err = m.CreatedAtTime()
	assert.Error(t, err)
}
