package middleware

import (
	"errors"
	"regexp"
	"time"
	"unicode/utf8"
)

var lunchDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var (
	ErrMissingConferenceID = errors.New("missing or invalid conferenceId")
	ErrMissingLunchDate    = errors.New("missing or invalid lunchDate")
)

// ValidateConferenceID validates a conference ID.
func ValidateConferenceID(id string) error {
	if len(id) == 0 {
		return ErrMissingConferenceID
	}
	if len(id) > 128 {
		return errors.New("conferenceId exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("conferenceId must be valid UTF-8")
	}
	return nil
}

// ValidateLunchDate validates a strict YYYY-MM-DD calendar date.
func ValidateLunchDate(date string) error {
	if len(date) == 0 {
		return ErrMissingLunchDate
	}
	if !lunchDatePattern.MatchString(date) {
		return errors.New("lunchDate must be in YYYY-MM-DD format")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return errors.New("lunchDate is not a valid calendar date")
	}
	return nil
}

// ValidateGroupID validates a group ID.
func ValidateGroupID(id string) error {
	if len(id) == 0 {
		return errors.New("groupId is required")
	}
	if len(id) > 128 {
		return errors.New("groupId exceeds maximum length")
	}
	return nil
}

// ValidateMinutesBefore validates a reminder lead time.
func ValidateMinutesBefore(minutes int) error {
	if minutes < 1 || minutes > 24*60 {
		return errors.New("minutesBefore must be between 1 and 1440")
	}
	return nil
}
