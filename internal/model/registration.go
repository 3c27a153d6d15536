// Package model defines data structures for the Power Lunch matcher.
package model

import (
	"time"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationMatched   RegistrationStatus = "matched"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationCompleted RegistrationStatus = "completed"
)

// Registration is one attendee's signup for a Power Lunch on a given date.
type Registration struct {
	// Identity
	ID              string `json:"id" firestore:"-" dynamodbav:"id"`
	UserID          string `json:"userId" firestore:"userId" dynamodbav:"userId"`
	UserName        string `json:"userName" firestore:"userName" dynamodbav:"userName"`
	UserEmail       string `json:"userEmail" firestore:"userEmail" dynamodbav:"userEmail"`
	UserCompany     string `json:"userCompany,omitempty" firestore:"userCompany,omitempty" dynamodbav:"userCompany,omitempty"`
	UserRole        string `json:"userRole,omitempty" firestore:"userRole,omitempty" dynamodbav:"userRole,omitempty"`
	UserIndustry    string `json:"userIndustry,omitempty" firestore:"userIndustry,omitempty" dynamodbav:"userIndustry,omitempty"`
	UserLinkedInURL string `json:"userLinkedInUrl,omitempty" firestore:"userLinkedInUrl,omitempty" dynamodbav:"userLinkedInUrl,omitempty"`

	// Push delivery
	FCMToken string `json:"fcmToken,omitempty" firestore:"fcmToken,omitempty" dynamodbav:"fcmToken,omitempty"`

	// Preferences
	LunchDate           string   `json:"lunchDate" firestore:"lunchDate" dynamodbav:"lunchDate"`
	TimeSlotPreference  string   `json:"timeSlotPreference,omitempty" firestore:"timeSlotPreference,omitempty" dynamodbav:"timeSlotPreference,omitempty"`
	DietaryRestrictions []string `json:"dietaryRestrictions,omitempty" firestore:"dietaryRestrictions,omitempty" dynamodbav:"dietaryRestrictions,omitempty"`

	// Matching criteria
	Topics           []string `json:"topics" firestore:"topics" dynamodbav:"topics"`
	Goals            []string `json:"goals" firestore:"goals" dynamodbav:"goals"`
	ExperienceLevel  string   `json:"experienceLevel,omitempty" firestore:"experienceLevel,omitempty" dynamodbav:"experienceLevel,omitempty"`
	LinkedInSkills   []string `json:"linkedInSkills,omitempty" firestore:"linkedInSkills,omitempty" dynamodbav:"linkedInSkills,omitempty"`
	LinkedInHeadline string   `json:"linkedInHeadline,omitempty" firestore:"linkedInHeadline,omitempty" dynamodbav:"linkedInHeadline,omitempty"`

	// Lifecycle
	Status  RegistrationStatus `json:"status" firestore:"status" dynamodbav:"status"`
	GroupID string             `json:"groupId,omitempty" firestore:"groupId,omitempty" dynamodbav:"groupId,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt" dynamodbav:"updatedAt"`
}

// HasPushToken reports whether the registration can receive push notifications.
func (r *Registration) HasPushToken() bool {
	return r.FCMToken != ""
}

// RegistrationIDs returns the ids of the given registrations in order.
func RegistrationIDs(regs []Registration) []string {
	ids := make([]string, len(regs))
	for i, r := range regs {
		ids[i] = r.ID
	}
	return ids
}
