package library

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/apps"
	"github.com/loopflow/cadenza/internal/apps/accounts"
	"github.com/loopflow/cadenza/internal/models"
	"github.com/loopflow/cadenza/internal/policy"
	"github.com/loopflow/cadenza/internal/storage"
	"gorm.io/gorm"
)

const defaultPDFFilename = "upload.pdf"

var (
	ErrPieceNotFound   = apperr.NotFound("Piece not found")
	ErrPDFUnavailable  = apperr.NotFound("PDF not available for this piece")
	ErrPieceInUse      = apperr.Conflict("Piece is used by a routine exercise")
	ErrTitleRequired   = apperr.Validation("title is required")
	ErrPDFFileRequired = apperr.Validation("pdf_file is required")
)

type LibraryService struct {
	db            *gorm.DB
	store         storage.Store
	keys          storage.Keys
	now           func() time.Time
	presignExpiry time.Duration
}

func NewLibraryService(deps apps.Deps) *LibraryService {
	return &LibraryService{
		db:            deps.DB,
		store:         deps.Storage,
		keys:          deps.Keys,
		now:           deps.Clock(),
		presignExpiry: deps.Config.PresignExpiry,
	}
}

func (s *LibraryService) List(owner *models.User) ([]models.Piece, error) {
	pieces := []models.Piece{}
	err := s.db.Where("owner_id = ?", owner.ID).Order("created_at ASC").Find(&pieces).Error
	return pieces, err
}

// Create uploads the PDF under a key derived from a fresh piece id and then
// records the piece. A failed insert removes the uploaded object again.
func (s *LibraryService) Create(ctx context.Context, owner *models.User, title, filename string, content []byte) (*models.Piece, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if len(content) == 0 {
		return nil, ErrPDFFileRequired
	}
	if filename == "" {
		filename = defaultPDFFilename
	}

	id := uuid.New()
	key := s.keys.Piece(id)
	if err := s.store.Put(ctx, key, content, storage.ContentTypePDF); err != nil {
		return nil, apps.StorageFailure(err)
	}

	now := s.now()
	piece := models.Piece{
		ID:          id,
		OwnerID:     owner.ID,
		Title:       title,
		PDFFilename: filename,
		S3Key:       &key,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.Create(&piece).Error; err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			slog.Error("failed to remove orphaned piece upload", "key", key, "error", delErr.Error())
		}
		return nil, err
	}

	slog.Info("piece created", "piece_id", piece.ID, "owner_id", owner.ID)
	return &piece, nil
}

// owned loads a piece and checks the caller owns it. denied is the message
// reported otherwise.
func (s *LibraryService) owned(user *models.User, id uuid.UUID, denied string) (*models.Piece, error) {
	var piece models.Piece
	err := s.db.First(&piece, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPieceNotFound
	}
	if err != nil {
		return nil, err
	}
	if !policy.OwnsPiece(user, &piece) {
		return nil, apperr.Forbidden(denied)
	}
	return &piece, nil
}

func (s *LibraryService) UpdateTitle(user *models.User, id uuid.UUID, title string) (*models.Piece, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	piece, err := s.owned(user, id, "Not authorized to update this piece")
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.db.Model(piece).Updates(map[string]interface{}{"title": title, "updated_at": now}).Error; err != nil {
		return nil, err
	}
	piece.Title = title
	piece.UpdatedAt = now
	return piece, nil
}

// Delete removes the piece row. The stored object stays because shared
// copies reference the same key.
func (s *LibraryService) Delete(user *models.User, id uuid.UUID) error {
	piece, err := s.owned(user, id, "Not authorized to delete this piece")
	if err != nil {
		return err
	}

	var inUse int64
	if err := s.db.Model(&models.Exercise{}).Where("piece_id = ?", piece.ID).Count(&inUse).Error; err != nil {
		return err
	}
	if inUse > 0 {
		return ErrPieceInUse
	}

	return s.db.Delete(piece).Error
}

func (s *LibraryService) DownloadURL(ctx context.Context, user *models.User, id uuid.UUID) (*DownloadURLResponse, error) {
	piece, err := s.owned(user, id, "Not authorized to access this piece")
	if err != nil {
		return nil, err
	}
	if piece.S3Key == nil || *piece.S3Key == "" {
		return nil, ErrPDFUnavailable
	}

	url, err := s.store.PresignGet(ctx, *piece.S3Key)
	if err != nil {
		return nil, apps.StorageFailure(err)
	}
	return &DownloadURLResponse{DownloadURL: url, ExpiresIn: int(s.presignExpiry.Seconds())}, nil
}

// Share copies one of the caller's pieces into the library of one of their
// students. The copy references the same stored object.
func (s *LibraryService) Share(teacher *models.User, pieceID, studentID uuid.UUID) (*models.Piece, error) {
	source, err := s.owned(teacher, pieceID, "Not authorized to share this piece")
	if err != nil {
		return nil, err
	}
	student, err := accounts.StudentOf(s.db, teacher, studentID, "Not authorized to share with this student")
	if err != nil {
		return nil, err
	}
	return CopyPiece(s.db, source, student.ID, s.now())
}

func (s *LibraryService) StudentPieces(teacher *models.User, studentID uuid.UUID) ([]models.Piece, error) {
	student, err := accounts.StudentOf(s.db, teacher, studentID, "Not authorized to view this student's pieces")
	if err != nil {
		return nil, err
	}
	return s.List(student)
}

// CopyPiece creates an independent piece owned by ownerID that derives from
// source and shares its object key.
func CopyPiece(tx *gorm.DB, source *models.Piece, ownerID uuid.UUID, now time.Time) (*models.Piece, error) {
	sourceID := source.ID
	piece := models.Piece{
		OwnerID:           ownerID,
		Title:             source.Title,
		PDFFilename:       source.PDFFilename,
		SharedFromPieceID: &sourceID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if source.S3Key != nil {
		key := *source.S3Key
		piece.S3Key = &key
	}
	if err := tx.Create(&piece).Error; err != nil {
		return nil, err
	}
	return &piece, nil
}

// FindCopy returns ownerID's existing copy of sourceID, or nil.
func FindCopy(tx *gorm.DB, ownerID, sourceID uuid.UUID) (*models.Piece, error) {
	var piece models.Piece
	err := tx.Where("owner_id = ? AND shared_from_piece_id = ?", ownerID, sourceID).
		Order("created_at ASC").
		First(&piece).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &piece, nil
}
