package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"vidchat-service/internal/models"
	"vidchat-service/internal/repositories"
)

type ChatRoomRepositoryMock struct {
	mock.Mock
}

func (m *ChatRoomRepositoryMock) ListRooms(ctx context.Context) ([]models.ChatRoom, error) {
	args := m.Called(ctx)
	var rooms []models.ChatRoom
	if val := args.Get(0); val != nil {
		rooms = val.([]models.ChatRoom)
	}
	return rooms, args.Error(1)
}

func (m *ChatRoomRepositoryMock) GetRoom(ctx context.Context, roomID string) (models.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *ChatRoomRepositoryMock) CreateRoom(ctx context.Context, name string, description *string, createdBy string) (models.ChatRoom, error) {
	args := m.Called(ctx, name, description, createdBy)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

type ChatMessageRepositoryMock struct {
	mock.Mock
}

func (m *ChatMessageRepositoryMock) CreateMessage(ctx context.Context, room models.RoomRef, userID string, content string) (models.ChatMessage, error) {
	args := m.Called(ctx, room, userID, content)
	var msg models.ChatMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ChatMessage)
	}
	return msg, args.Error(1)
}

func (m *ChatMessageRepositoryMock) RecentMessages(ctx context.Context, room models.RoomRef, limit int) ([]models.EnrichedMessage, error) {
	args := m.Called(ctx, room, limit)
	var msgs []models.EnrichedMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.EnrichedMessage)
	}
	return msgs, args.Error(1)
}

type LiveStreamRepositoryMock struct {
	mock.Mock
}

func (m *LiveStreamRepositoryMock) GetLiveStream(ctx context.Context, streamID string) (models.LiveStream, error) {
	args := m.Called(ctx, streamID)
	var stream models.LiveStream
	if val := args.Get(0); val != nil {
		stream = val.(models.LiveStream)
	}
	return stream, args.Error(1)
}

func (m *LiveStreamRepositoryMock) ListLiveStreams(ctx context.Context, limit int) ([]models.LiveStream, error) {
	args := m.Called(ctx, limit)
	var streams []models.LiveStream
	if val := args.Get(0); val != nil {
		streams = val.([]models.LiveStream)
	}
	return streams, args.Error(1)
}

func (m *LiveStreamRepositoryMock) AdjustViewerCount(ctx context.Context, streamID string, delta int) error {
	args := m.Called(ctx, streamID, delta)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	args := m.Called(ctx, email, passwordHash)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) CreateProfile(ctx context.Context, userID, username string) (models.Profile, error) {
	args := m.Called(ctx, userID, username)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	args := m.Called(ctx, userID)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (models.Profile, error) {
	args := m.Called(ctx, userID, update)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) GetSender(ctx context.Context, userID string) (models.Sender, error) {
	args := m.Called(ctx, userID)
	var sender models.Sender
	if val := args.Get(0); val != nil {
		sender = val.(models.Sender)
	}
	return sender, args.Error(1)
}

type ChannelRepositoryMock struct {
	mock.Mock
}

func (m *ChannelRepositoryMock) CreateChannel(ctx context.Context, userID, name string) (models.Channel, error) {
	args := m.Called(ctx, userID, name)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) GetChannel(ctx context.Context, channelID string) (models.Channel, error) {
	args := m.Called(ctx, channelID)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) GetChannelByOwner(ctx context.Context, userID string) (models.Channel, error) {
	args := m.Called(ctx, userID)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	args := m.Called(ctx, subscriberID, channelID)
	return args.Bool(0), args.Error(1)
}

func (m *ChannelRepositoryMock) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	args := m.Called(ctx, subscriberID, channelID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) Unsubscribe(ctx context.Context, subscriberID, channelID string) error {
	args := m.Called(ctx, subscriberID, channelID)
	return args.Error(0)
}

type VideoRepositoryMock struct {
	mock.Mock
}

func (m *VideoRepositoryMock) CreateVideo(ctx context.Context, video models.Video) (models.Video, error) {
	args := m.Called(ctx, video)
	var created models.Video
	if val := args.Get(0); val != nil {
		created = val.(models.Video)
	}
	return created, args.Error(1)
}

func (m *VideoRepositoryMock) GetVideo(ctx context.Context, videoID string) (models.VideoSummary, error) {
	args := m.Called(ctx, videoID)
	var video models.VideoSummary
	if val := args.Get(0); val != nil {
		video = val.(models.VideoSummary)
	}
	return video, args.Error(1)
}

func (m *VideoRepositoryMock) DeleteVideo(ctx context.Context, videoID string) error {
	args := m.Called(ctx, videoID)
	return args.Error(0)
}

func (m *VideoRepositoryMock) IncrementViews(ctx context.Context, videoID string) error {
	args := m.Called(ctx, videoID)
	return args.Error(0)
}

func (m *VideoRepositoryMock) ListChannelVideos(ctx context.Context, channelID string, shorts bool, limit int) ([]models.VideoSummary, error) {
	args := m.Called(ctx, channelID, shorts, limit)
	return videoList(args.Get(0)), args.Error(1)
}

func (m *VideoRepositoryMock) SearchVideos(ctx context.Context, query string, limit int) ([]models.VideoSummary, error) {
	args := m.Called(ctx, query, limit)
	return videoList(args.Get(0)), args.Error(1)
}

func (m *VideoRepositoryMock) ListShorts(ctx context.Context, limit int) ([]models.VideoSummary, error) {
	args := m.Called(ctx, limit)
	return videoList(args.Get(0)), args.Error(1)
}

func (m *VideoRepositoryMock) ListSubscriptionFeed(ctx context.Context, userID string, limit int) ([]models.VideoSummary, error) {
	args := m.Called(ctx, userID, limit)
	return videoList(args.Get(0)), args.Error(1)
}

func videoList(val any) []models.VideoSummary {
	if val == nil {
		return nil
	}
	return val.([]models.VideoSummary)
}

type EngagementRepositoryMock struct {
	mock.Mock
}

func (m *EngagementRepositoryMock) GetVideoReaction(ctx context.Context, userID, videoID string) (*bool, error) {
	args := m.Called(ctx, userID, videoID)
	var reaction *bool
	if val := args.Get(0); val != nil {
		reaction = val.(*bool)
	}
	return reaction, args.Error(1)
}

func (m *EngagementRepositoryMock) SetVideoReaction(ctx context.Context, userID, videoID string, isLike *bool) (models.ReactionState, error) {
	args := m.Called(ctx, userID, videoID, isLike)
	var state models.ReactionState
	if val := args.Get(0); val != nil {
		state = val.(models.ReactionState)
	}
	return state, args.Error(1)
}

func (m *EngagementRepositoryMock) RecordWatch(ctx context.Context, userID, videoID string, progress int) error {
	args := m.Called(ctx, userID, videoID, progress)
	return args.Error(0)
}

func (m *EngagementRepositoryMock) ListWatchHistory(ctx context.Context, userID string, limit int) ([]models.WatchEntry, error) {
	args := m.Called(ctx, userID, limit)
	var entries []models.WatchEntry
	if val := args.Get(0); val != nil {
		entries = val.([]models.WatchEntry)
	}
	return entries, args.Error(1)
}

func (m *EngagementRepositoryMock) ListLikedVideos(ctx context.Context, userID string, limit int) ([]models.VideoSummary, error) {
	args := m.Called(ctx, userID, limit)
	return videoList(args.Get(0)), args.Error(1)
}

type CommentRepositoryMock struct {
	mock.Mock
}

func (m *CommentRepositoryMock) ListComments(ctx context.Context, videoID, sort string, limit int) ([]models.Comment, error) {
	args := m.Called(ctx, videoID, sort, limit)
	var comments []models.Comment
	if val := args.Get(0); val != nil {
		comments = val.([]models.Comment)
	}
	return comments, args.Error(1)
}

func (m *CommentRepositoryMock) CreateComment(ctx context.Context, videoID, userID string, parentID *string, content string) (models.Comment, error) {
	args := m.Called(ctx, videoID, userID, parentID, content)
	var comment models.Comment
	if val := args.Get(0); val != nil {
		comment = val.(models.Comment)
	}
	return comment, args.Error(1)
}

func (m *CommentRepositoryMock) ToggleCommentLike(ctx context.Context, userID, commentID string) (bool, error) {
	args := m.Called(ctx, userID, commentID)
	return args.Bool(0), args.Error(1)
}

var _ repositories.ChatRoomRepository = (*ChatRoomRepositoryMock)(nil)
var _ repositories.ChatMessageRepository = (*ChatMessageRepositoryMock)(nil)
var _ repositories.LiveStreamRepository = (*LiveStreamRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ProfileRepository = (*ProfileRepositoryMock)(nil)
var _ repositories.ChannelRepository = (*ChannelRepositoryMock)(nil)
var _ repositories.VideoRepository = (*VideoRepositoryMock)(nil)
var _ repositories.EngagementRepository = (*EngagementRepositoryMock)(nil)
var _ repositories.CommentRepository = (*CommentRepositoryMock)(nil)
