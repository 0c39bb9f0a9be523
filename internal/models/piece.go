package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Piece references a sheet-music PDF. A shared copy points at its source
// through SharedFromPieceID and may reuse the source's object key.
type Piece struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID           uuid.UUID  `gorm:"type:uuid;not null;index;index:idx_pieces_owner_source" json:"owner_id"`
	Title             string     `gorm:"not null;size:255" json:"title"`
	PDFFilename       string     `gorm:"column:pdf_filename;not null;size:255" json:"pdf_filename"`
	S3Key             *string    `gorm:"column:s3_key;size:512" json:"s3_key"`
	SharedFromPieceID *uuid.UUID `gorm:"type:uuid;index:idx_pieces_owner_source" json:"shared_from_piece_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (p *Piece) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
