package domain

import "time"

// Project is the catalog entry a negotiation refers to.
type Project struct {
	ID          string
	OwnerID     string
	Title       string
	FundingGoal int64
	CreatedAt   time.Time
}

// ProjectField is one named disclosure item of a project.
type ProjectField struct {
	ProjectID    string
	Name         string
	Value        string
	Confidential bool
}
