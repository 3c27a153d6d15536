package model

import (
	"time"
)

// GroupStatus is the lifecycle state of a lunch group.
type GroupStatus string

const (
	GroupScheduled  GroupStatus = "scheduled"
	GroupInProgress GroupStatus = "in-progress"
	GroupCompleted  GroupStatus = "completed"
	GroupCancelled  GroupStatus = "cancelled"
)

// Group is a committed set of attendees assigned to dine together.
type Group struct {
	ID           string `json:"id" firestore:"id" dynamodbav:"id"`
	ConferenceID string `json:"conferenceId" firestore:"conferenceId" dynamodbav:"conferenceId"`

	LunchDate   string `json:"lunchDate" firestore:"lunchDate" dynamodbav:"lunchDate"`
	TimeSlot    string `json:"timeSlot" firestore:"timeSlot" dynamodbav:"timeSlot"`
	Venue       string `json:"venue,omitempty" firestore:"venue,omitempty" dynamodbav:"venue,omitempty"`
	TableNumber string `json:"tableNumber,omitempty" firestore:"tableNumber,omitempty" dynamodbav:"tableNumber,omitempty"`

	MemberIDs   []string `json:"memberIds" firestore:"memberIds" dynamodbav:"memberIds"`
	MemberCount int      `json:"memberCount" firestore:"memberCount" dynamodbav:"memberCount"`

	MatchRationale       string   `json:"matchRationale" firestore:"matchRationale" dynamodbav:"matchRationale"`
	CommonTopics         []string `json:"commonTopics" firestore:"commonTopics" dynamodbav:"commonTopics"`
	SuggestedIcebreakers []string `json:"suggestedIcebreakers,omitempty" firestore:"suggestedIcebreakers,omitempty" dynamodbav:"suggestedIcebreakers,omitempty"`

	Status GroupStatus `json:"status" firestore:"status" dynamodbav:"status"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt" dynamodbav:"updatedAt"`
}

// GroupDetails is a group together with its member registrations.
type GroupDetails struct {
	Group   Group          `json:"group"`
	Members []Registration `json:"members"`
}
