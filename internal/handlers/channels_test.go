package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vidchat-service/internal/mocks"
	"vidchat-service/internal/models"
	"vidchat-service/internal/repositories"
)

func setupChannelRouter(handler *ChannelHandler) *gin.Engine {
	return setupRouter(func(r *gin.Engine) {
		r.GET("/channels/:channel_id", handler.GetChannel)
		r.GET("/channels/:channel_id/videos", handler.ListVideos)
		r.GET("/channels/:channel_id/subscription", handler.SubscriptionStatus)
		r.POST("/channels/:channel_id/subscription", handler.Subscribe)
		r.DELETE("/channels/:channel_id/subscription", handler.Unsubscribe)
	})
}

func TestGetChannel(t *testing.T) {
	channels := new(mocks.ChannelRepositoryMock)
	router := setupChannelRouter(NewChannelHandler(channels, nil))

	channels.On("GetChannel", mock.Anything, "c1").Return(models.Channel{ID: "c1", Name: "ann"}, nil).Once()
	channels.On("GetChannel", mock.Anything, "c2").Return(nil, repositories.ErrChannelNotFound).Once()

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/channels/c1", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/channels/c2", "").Code)
}

func TestListChannelVideosTabs(t *testing.T) {
	videos := new(mocks.VideoRepositoryMock)
	router := setupChannelRouter(NewChannelHandler(nil, videos))

	videos.On("ListChannelVideos", mock.Anything, "c1", false, channelVideosLimit).Return([]models.VideoSummary{}, nil).Once()
	videos.On("ListChannelVideos", mock.Anything, "c1", true, channelVideosLimit).Return([]models.VideoSummary{}, nil).Once()

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/channels/c1/videos", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/channels/c1/videos?tab=shorts", "").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/channels/c1/videos?tab=live", "").Code)
	videos.AssertExpectations(t)
}

func TestSubscriptionLifecycle(t *testing.T) {
	channels := new(mocks.ChannelRepositoryMock)
	router := setupChannelRouter(NewChannelHandler(channels, nil))

	channels.On("Subscribe", mock.Anything, "u1", "c1").Return(nil).Once()
	channels.On("IsSubscribed", mock.Anything, "u1", "c1").Return(true, nil).Once()
	channels.On("Unsubscribe", mock.Anything, "u1", "c1").Return(nil).Once()

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/channels/c1/subscription", "").Code)
	rec := doRequest(router, http.MethodGet, "/channels/c1/subscription", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subscribed":true}`, rec.Body.String())
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodDelete, "/channels/c1/subscription", "").Code)
	channels.AssertExpectations(t)
}

func TestSubscribeToOwnChannel(t *testing.T) {
	channels := new(mocks.ChannelRepositoryMock)
	router := setupChannelRouter(NewChannelHandler(channels, nil))

	channels.On("Subscribe", mock.Anything, "u1", "mine").Return(repositories.ErrSelfSubscription).Once()

	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodPost, "/channels/mine/subscription", "").Code)
}
