package model

import "time"

// Follow is a directed edge in the social graph: FollowedBy follows
// Following. The pair is unique and self-follows are rejected before the
// edge ever reaches storage.
type Follow struct {
	ID          string    `json:"followId"           db:"id"`
	FollowedBy  string    `json:"followedByUsername" db:"followed_by"`
	Following   string    `json:"followingUsername"  db:"following"`
	CreatedAt   time.Time `json:"createdAt"          db:"created_at"`

	// Populated on profile queries: the public profile of the counterpart
	// (the follower on a followers listing, the followee on a following
	// listing).
	Counterpart *Profile `json:"profile,omitempty" db:"-"`
}
