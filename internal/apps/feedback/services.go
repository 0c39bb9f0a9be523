package feedback

import (
	"context"
	"errors"
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

var (
	ErrSubmissionNotFound  = apperr.NotFound("Video submission not found")
	ErrMessageNotFound     = apperr.NotFound("Message not found")
	ErrMessageVideoMissing = apperr.NotFound("Message video not found")
	ErrContextRequired     = apperr.Validation("At least one context field must be set")
	ErrEmptyMessage        = apperr.Validation("Message must include text or a video")
	ErrDurationRequired    = apperr.Validation("video_duration_seconds is required for video messages")
)

type FeedbackService struct {
	db            *gorm.DB
	store         storage.Store
	keys          storage.Keys
	now           func() time.Time
	presignExpiry time.Duration
}

func NewFeedbackService(deps apps.Deps) *FeedbackService {
	return &FeedbackService{
		db:            deps.DB,
		store:         deps.Storage,
		keys:          deps.Keys,
		now:           deps.Clock(),
		presignExpiry: deps.Config.PresignExpiry,
	}
}

func (s *FeedbackService) expiresIn() int {
	return int(s.presignExpiry.Seconds())
}

// uploadURLs presigns PUTs for a video and its thumbnail.
func (s *FeedbackService) uploadURLs(ctx context.Context, videoKey, thumbKey string) (string, string, error) {
	upload, err := s.store.PresignPut(ctx, videoKey, storage.ContentTypeMP4)
	if err != nil {
		return "", "", apps.StorageFailure(err)
	}
	thumb, err := s.store.PresignPut(ctx, thumbKey, storage.ContentTypeJPEG)
	if err != nil {
		return "", "", apps.StorageFailure(err)
	}
	return upload, thumb, nil
}

// Create records a submission and returns presigned upload URLs for the
// video and its thumbnail. Nothing is written when presigning fails.
func (s *FeedbackService) Create(ctx context.Context, user *models.User, req CreateSubmissionRequest) (*SubmissionResponse, error) {
	if req.ExerciseID == nil && req.PieceID == nil && req.SessionID == nil {
		return nil, ErrContextRequired
	}

	id := uuid.New()
	videoKey := s.keys.Video(user.ID, id)
	thumbKey := s.keys.VideoThumbnail(user.ID, id)
	upload, thumb, err := s.uploadURLs(ctx, videoKey, thumbKey)
	if err != nil {
		return nil, err
	}

	submission := models.VideoSubmission{
		ID:              id,
		UserID:          user.ID,
		ExerciseID:      req.ExerciseID,
		PieceID:         req.PieceID,
		SessionID:       req.SessionID,
		S3Key:           videoKey,
		ThumbnailS3Key:  &thumbKey,
		DurationSeconds: req.DurationSeconds,
		Notes:           req.Notes,
		CreatedAt:       s.now(),
	}
	if err := s.db.Create(&submission).Error; err != nil {
		return nil, err
	}

	return &SubmissionResponse{
		Submission:         &submission,
		UploadURL:          upload,
		ThumbnailUploadURL: thumb,
		ExpiresIn:          s.expiresIn(),
	}, nil
}

func (s *FeedbackService) load(id uuid.UUID) (*models.VideoSubmission, error) {
	var submission models.VideoSubmission
	err := s.db.First(&submission, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// participant loads a submission and checks that user is its submitter or the
// submitter's teacher.
func (s *FeedbackService) participant(user *models.User, id uuid.UUID, denied string) (*models.VideoSubmission, error) {
	submission, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if policy.OwnsSubmission(user, submission) {
		return submission, nil
	}

	var owner models.User
	if err := s.db.First(&owner, "id = ?", submission.UserID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !policy.IsSubmissionParticipant(user, &owner, submission) {
		return nil, apperr.Forbidden(denied)
	}
	return submission, nil
}

func (s *FeedbackService) UploadURL(ctx context.Context, user *models.User, id uuid.UUID) (*UploadURLResponse, error) {
	submission, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !policy.OwnsSubmission(user, submission) {
		return nil, apperr.Forbidden("Not authorized to upload this submission")
	}

	thumbKey := s.keys.VideoThumbnail(submission.UserID, submission.ID)
	if submission.ThumbnailS3Key != nil {
		thumbKey = *submission.ThumbnailS3Key
	}
	upload, thumb, err := s.uploadURLs(ctx, submission.S3Key, thumbKey)
	if err != nil {
		return nil, err
	}
	return &UploadURLResponse{UploadURL: upload, ThumbnailUploadURL: thumb, ExpiresIn: s.expiresIn()}, nil
}

func (s *FeedbackService) list(userID uuid.UUID, filter SubmissionFilter) ([]models.VideoSubmission, error) {
	query := s.db.Where("user_id = ?", userID)
	if filter.PieceID != nil {
		query = query.Where("piece_id = ?", *filter.PieceID)
	}
	if filter.ExerciseID != nil {
		query = query.Where("exercise_id = ?", *filter.ExerciseID)
	}
	if filter.PendingReview {
		query = query.Where("reviewed_at IS NULL")
	}

	submissions := []models.VideoSubmission{}
	err := query.Order("created_at DESC").Find(&submissions).Error
	return submissions, err
}

func (s *FeedbackService) List(user *models.User, filter SubmissionFilter) ([]models.VideoSubmission, error) {
	return s.list(user.ID, filter)
}

func (s *FeedbackService) StudentSubmissions(teacher *models.User, studentID uuid.UUID, filter SubmissionFilter) ([]models.VideoSubmission, error) {
	student, err := accounts.StudentOf(s.db, teacher, studentID, "Not authorized to view this student's submissions")
	if err != nil {
		return nil, err
	}
	return s.list(student.ID, filter)
}

func (s *FeedbackService) MarkReviewed(teacher *models.User, id uuid.UUID) (*models.VideoSubmission, error) {
	submission, err := s.load(id)
	if err != nil {
		return nil, err
	}
	var owner models.User
	if err := s.db.First(&owner, "id = ?", submission.UserID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !policy.IsTeacherOf(teacher, &owner) {
		return nil, apperr.Forbidden("Not authorized to review this submission")
	}

	now := s.now()
	reviewer := teacher.ID
	err = s.db.Model(submission).Updates(map[string]interface{}{
		"reviewed_at":    now,
		"reviewed_by_id": reviewer,
	}).Error
	if err != nil {
		return nil, err
	}
	submission.ReviewedAt = &now
	submission.ReviewedByID = &reviewer
	return submission, nil
}

func (s *FeedbackService) videoURLs(ctx context.Context, videoKey string, thumbKey *string) (*VideoURLResponse, error) {
	video, err := s.store.PresignGet(ctx, videoKey)
	if err != nil {
		return nil, apps.StorageFailure(err)
	}
	resp := &VideoURLResponse{VideoURL: video, ExpiresIn: s.expiresIn()}
	if thumbKey != nil && *thumbKey != "" {
		thumb, err := s.store.PresignGet(ctx, *thumbKey)
		if err != nil {
			return nil, apps.StorageFailure(err)
		}
		resp.ThumbnailURL = &thumb
	}
	return resp, nil
}

func (s *FeedbackService) VideoURL(ctx context.Context, user *models.User, id uuid.UUID) (*VideoURLResponse, error) {
	submission, err := s.participant(user, id, "Not authorized to view this submission")
	if err != nil {
		return nil, err
	}
	return s.videoURLs(ctx, submission.S3Key, submission.ThumbnailS3Key)
}

func (s *FeedbackService) Messages(user *models.User, id uuid.UUID) ([]models.Message, error) {
	submission, err := s.participant(user, id, "Not authorized to view these messages")
	if err != nil {
		return nil, err
	}
	messages := []models.Message{}
	err = s.db.Where("submission_id = ?", submission.ID).Order("created_at ASC").Find(&messages).Error
	return messages, err
}

// CreateMessage posts to a submission thread. With include_video the message
// gets object keys and the response carries presigned upload URLs.
func (s *FeedbackService) CreateMessage(ctx context.Context, user *models.User, id uuid.UUID, req CreateMessageRequest) (*MessageResponse, error) {
	submission, err := s.participant(user, id, "Not authorized to message this submission")
	if err != nil {
		return nil, err
	}

	var text *string
	if req.Text != nil {
		if trimmed := strings.TrimSpace(*req.Text); trimmed != "" {
			text = &trimmed
		}
	}
	if text == nil && !req.IncludeVideo {
		return nil, ErrEmptyMessage
	}
	if req.IncludeVideo && req.VideoDurationSeconds == nil {
		return nil, ErrDurationRequired
	}

	message := models.Message{
		ID:           uuid.New(),
		SubmissionID: submission.ID,
		SenderID:     user.ID,
		Text:         text,
		CreatedAt:    s.now(),
	}
	resp := &MessageResponse{Message: &message}

	if req.IncludeVideo {
		videoKey := s.keys.MessageVideo(user.ID, message.ID)
		thumbKey := s.keys.MessageThumbnail(user.ID, message.ID)
		upload, thumb, err := s.uploadURLs(ctx, videoKey, thumbKey)
		if err != nil {
			return nil, err
		}
		message.VideoS3Key = &videoKey
		message.ThumbnailS3Key = &thumbKey
		message.VideoDurationSeconds = req.VideoDurationSeconds

		expires := s.expiresIn()
		resp.UploadURL = &upload
		resp.ThumbnailUploadURL = &thumb
		resp.ExpiresIn = &expires
	}

	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *FeedbackService) MessageVideoURL(ctx context.Context, user *models.User, messageID uuid.UUID) (*VideoURLResponse, error) {
	var message models.Message
	err := s.db.First(&message, "id = ?", messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.participant(user, message.SubmissionID, "Not authorized to view this message"); err != nil {
		return nil, err
	}
	if message.VideoS3Key == nil || *message.VideoS3Key == "" {
		return nil, ErrMessageVideoMissing
	}
	return s.videoURLs(ctx, *message.VideoS3Key, message.ThumbnailS3Key)
}
