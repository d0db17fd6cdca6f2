package model

// Producer is the seller entity whose display name heads
// producer-scoped notifications. Only the fields this service reads.
type Producer struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
