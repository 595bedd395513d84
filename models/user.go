package models

// User is the identity record resolved from an API token. Account
// management lives outside this service; only the fields the document
// lifecycle needs are mapped here.
type User struct {
	ID            string `json:"id" bson:"_id"`
	APIToken      string `json:"-" bson:"api_token"`
	MemberPlus    bool   `json:"member_plus" bson:"member_plus"`
	DocumentsMade int    `json:"documents_made" bson:"documents_made"`
}
