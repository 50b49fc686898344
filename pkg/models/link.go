package models

// Link records that OriginalID has been folded into PrimaryID.
type Link struct {
	PrimaryID  int64 `db:"primary_rest_id" json:"primary_rest_id"`
	OriginalID int64 `db:"original_rest_id" json:"original_rest_id"`
}

// LinkedView is the primary restaurant of an entity plus every original folded into it.
type LinkedView struct {
	Primary Restaurant   `json:"primary"`
	Linked  []Restaurant `json:"linked"`
}
