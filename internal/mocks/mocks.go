package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"tutorhub/internal/models"
	"tutorhub/internal/realtime"
	"tutorhub/internal/repositories"
)

type ThreadRepositoryMock struct {
	mock.Mock
}

func (m *ThreadRepositoryMock) CreateThread(ctx context.Context, subject string, createdBy int, recipientType string, groupID *int, recipientIDs []int, content string, imageURLs []string) (int, error) {
	args := m.Called(ctx, subject, createdBy, recipientType, groupID, recipientIDs, content, imageURLs)
	return args.Int(0), args.Error(1)
}

func (m *ThreadRepositoryMock) GetThread(ctx context.Context, threadID int) (models.Thread, error) {
	args := m.Called(ctx, threadID)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ThreadRepositoryMock) ListThreadPreviews(ctx context.Context, userID int, limit int) ([]models.ThreadPreview, error) {
	args := m.Called(ctx, userID, limit)
	var previews []models.ThreadPreview
	if val := args.Get(0); val != nil {
		previews = val.([]models.ThreadPreview)
	}
	return previews, args.Error(1)
}

func (m *ThreadRepositoryMock) ListParticipants(ctx context.Context, threadID int) ([]models.ThreadParticipant, error) {
	args := m.Called(ctx, threadID)
	var participants []models.ThreadParticipant
	if val := args.Get(0); val != nil {
		participants = val.([]models.ThreadParticipant)
	}
	return participants, args.Error(1)
}

func (m *ThreadRepositoryMock) ParticipantIDs(ctx context.Context, threadID int) ([]int, error) {
	args := m.Called(ctx, threadID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *ThreadRepositoryMock) IsParticipant(ctx context.Context, threadID int, userID int) (bool, error) {
	args := m.Called(ctx, threadID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ThreadRepositoryMock) MarkThreadRead(ctx context.Context, threadID int, userID int) error {
	args := m.Called(ctx, threadID, userID)
	return args.Error(0)
}

func (m *ThreadRepositoryMock) CountUnread(ctx context.Context, userID int) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *ThreadRepositoryMock) ArchiveThreads(ctx context.Context, threadIDs []int) (int, error) {
	args := m.Called(ctx, threadIDs)
	return args.Int(0), args.Error(1)
}

func (m *ThreadRepositoryMock) DeleteThreads(ctx context.Context, threadIDs []int) (int, error) {
	args := m.Called(ctx, threadIDs)
	return args.Int(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, threadID int, senderID int, content string, imageURLs []string) (models.Message, error) {
	args := m.Called(ctx, threadID, senderID, content, imageURLs)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListThreadMessages(ctx context.Context, threadID int) ([]models.Message, error) {
	args := m.Called(ctx, threadID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) DeleteMessage(ctx context.Context, messageID int) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) BulkDeleteMessages(ctx context.Context, messageIDs []int) (int, error) {
	args := m.Called(ctx, messageIDs)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) ThreadIDs(ctx context.Context, messageIDs []int) ([]int, error) {
	args := m.Called(ctx, messageIDs)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) ToggleReaction(ctx context.Context, messageID int, userID int, emoji string) (bool, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Bool(0), args.Error(1)
}

func (m *ReactionRepositoryMock) ListReactions(ctx context.Context, messageIDs []int) ([]models.Reaction, error) {
	args := m.Called(ctx, messageIDs)
	var rows []models.Reaction
	if val := args.Get(0); val != nil {
		rows = val.([]models.Reaction)
	}
	return rows, args.Error(1)
}

type LessonRepositoryMock struct {
	mock.Mock
}

func (m *LessonRepositoryMock) ListFamilyLessons(ctx context.Context, tutorID int, from, to time.Time) ([]models.FamilyLessons, error) {
	args := m.Called(ctx, tutorID, from, to)
	var families []models.FamilyLessons
	if val := args.Get(0); val != nil {
		families = val.([]models.FamilyLessons)
	}
	return families, args.Error(1)
}

func (m *LessonRepositoryMock) ListPrepaidPackages(ctx context.Context, parentIDs []int) ([]models.PrepaidPackage, error) {
	args := m.Called(ctx, parentIDs)
	var packages []models.PrepaidPackage
	if val := args.Get(0); val != nil {
		packages = val.([]models.PrepaidPackage)
	}
	return packages, args.Error(1)
}

func (m *LessonRepositoryMock) MarkLessonsInvoiced(ctx context.Context, tutorID int, parentID int, lessonIDs []int) (int, error) {
	args := m.Called(ctx, tutorID, parentID, lessonIDs)
	return args.Int(0), args.Error(1)
}

type BusMock struct {
	mock.Mock
}

func (m *BusMock) PublishChange(ctx context.Context, event models.ChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var (
	_ repositories.ThreadRepository   = (*ThreadRepositoryMock)(nil)
	_ repositories.MessageRepository  = (*MessageRepositoryMock)(nil)
	_ repositories.ReactionRepository = (*ReactionRepositoryMock)(nil)
	_ repositories.LessonRepository   = (*LessonRepositoryMock)(nil)
	_ realtime.Bus                    = (*BusMock)(nil)
)
