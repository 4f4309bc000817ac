package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// Invitation asks an invitee to collaborate on a project.
type Invitation struct {
	ID        string           `json:"id"`
	ProjectID string           `json:"projectId"`
	InviterID string           `json:"inviterId"`
	InviteeID string           `json:"inviteeId"`
	Status    InvitationStatus `json:"status"`
	Project   *Project         `json:"project,omitempty"`
	Inviter   *ProfileSummary  `json:"inviter,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}
