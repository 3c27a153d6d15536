package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLunchDate(t *testing.T) {
	tests := []struct {
		date    string
		wantErr bool
	}{
		{"2025-03-14", false},
		{"2024-02-29", false},
		{"", true},
		{"2025-3-14", true},
		{"20250314", true},
		{"2025-03-14T12:00:00Z", true},
		{"2025-02-30", true},
		{" 2025-03-14", true},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			err := ValidateLunchDate(tt.date)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConferenceID(t *testing.T) {
	assert.NoError(t, ValidateConferenceID("devcon-2025"))
	assert.ErrorIs(t, ValidateConferenceID(""), ErrMissingConferenceID)
	assert.EqualError(t, ValidateConferenceID(""), "missing or invalid conferenceId")
	assert.Error(t, ValidateConferenceID(strings.Repeat("x", 129)))
	assert.Error(t, ValidateConferenceID("\xff"))
}

func TestValidationErrorsAreLowercase(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"empty conference", ValidateConferenceID("")},
		{"long conference", ValidateConferenceID(strings.Repeat("x", 129))},
		{"empty date", ValidateLunchDate("")},
		{"bad date format", ValidateLunchDate("14/03/2025")},
		{"impossible date", ValidateLunchDate("2025-02-30")},
		{"empty group", ValidateGroupID("")},
		{"minutes out of range", ValidateMinutesBefore(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			msg := tt.err.Error()
			assert.Equal(t, strings.ToLower(msg[:1]), msg[:1])
		})
	}

	assert.ErrorIs(t, ValidateLunchDate(""), ErrMissingLunchDate)
}

func TestValidateMinutesBefore(t *testing.T) {
	assert.NoError(t, ValidateMinutesBefore(30))
	assert.NoError(t, ValidateMinutesBefore(1440))
	assert.Error(t, ValidateMinutesBefore(0))
	assert.Error(t, ValidateMinutesBefore(-5))
	assert.Error(t, ValidateMinutesBefore(1441))
}

func TestValidateGroupID(t *testing.T) {
	assert.NoError(t, ValidateGroupID("g1"))
	assert.Error(t, ValidateGroupID(""))
}
