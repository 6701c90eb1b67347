package model

// User is the slice of the platform user record the chat core reads.
type User struct {
	ID             int64   `json:"id" bson:"_id"`
	Username       string  `json:"username" bson:"username"`
	ProfilePicture *string `json:"profile_picture" bson:"profile_picture,omitempty"`
	IsActive       bool    `json:"is_active" bson:"is_active"`
	IsVerified     bool    `json:"is_verified" bson:"is_verified"`
}
