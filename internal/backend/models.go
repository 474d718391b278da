package backend

import "time"

// Level is a level record owned by the backend. A non-nil ReplacedBy marks
// the record as superseded; superseded records never take part in matching.
type Level struct {
	ID         int64      `json:"id"`
	ReplacedBy *int64     `json:"replacedBy"`
	Deleted    bool       `json:"deleted"`
	WorkshopID string     `json:"workshopId"`
	AuthorID   string     `json:"authorId"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ImageURL   string     `json:"imageUrl"`
	FileURL    string     `json:"fileUrl"`
	FileUID    string     `json:"fileUid"`
	FileHash   string     `json:"fileHash"`
	FileAuthor string     `json:"fileAuthor"`
}

// Metadata is the deduplicated per-content metadata record. Hash is unique
// across all metadata records.
type Metadata struct {
	ID          int64   `json:"id"`
	Hash        string  `json:"hash"`
	Checkpoints int     `json:"checkpoints"`
	Blocks      string  `json:"blocks"`
	Valid       bool    `json:"valid"`
	Validation  float64 `json:"validation"`
	Gold        float64 `json:"gold"`
	Silver      float64 `json:"silver"`
	Bronze      float64 `json:"bronze"`
	Ground      int     `json:"ground"`
	Skybox      int     `json:"skybox"`
}

// CreateLevelRequest is the payload for creating a level record.
type CreateLevelRequest struct {
	WorkshopID string    `json:"workshopId"`
	AuthorID   string    `json:"authorId"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	ImageURL   string    `json:"imageUrl"`
	FileURL    string    `json:"fileUrl"`
	FileUID    string    `json:"fileUid"`
	FileHash   string    `json:"fileHash"`
	FileAuthor string    `json:"fileAuthor"`
	MetadataID int64     `json:"metadataId"`
}

// CreateMetadataRequest is the payload for creating a metadata record.
type CreateMetadataRequest struct {
	Hash        string  `json:"hash"`
	Checkpoints int     `json:"checkpoints"`
	Blocks      string  `json:"blocks"`
	Valid       bool    `json:"valid"`
	Validation  float64 `json:"validation"`
	Gold        float64 `json:"gold"`
	Silver      float64 `json:"silver"`
	Bronze      float64 `json:"bronze"`
	Ground      int     `json:"ground"`
	Skybox      int     `json:"skybox"`
}

type replaceLevelRequest struct {
	Replacement int64 `json:"replacement"`
}

type updateLevelTimeRequest struct {
	Ticks int64 `json:"ticks"`
}
