package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"vidchat-service/internal/models"
	"vidchat-service/internal/observability"
	"vidchat-service/internal/storage"
)

// PlaceholderThumbnailURL is used when an upload carries no thumbnail.
const PlaceholderThumbnailURL = "https://via.placeholder.com/1280x720?text=Video"

const (
	StatusUploading  = "uploading"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusError      = "error"
)

var ErrMissingVideo = errors.New("video file is required")

// Progress is reported after each pipeline step.
type Progress struct {
	Percent int    `json:"progress"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// VideoCreator inserts the video record.
type VideoCreator interface {
	CreateVideo(ctx context.Context, video models.Video) (models.Video, error)
}

// Request describes one upload.
type Request struct {
	UserID      string
	ChannelID   string
	Title       string
	Description *string
	Category    *string
	Visibility  string
	IsShort     bool
	Duration    int
	Video       io.Reader
	Thumbnail   io.Reader
}

// Pipeline uploads the video blob, then the thumbnail, then inserts the
// record. Steps run strictly in sequence and a failed step aborts the rest.
type Pipeline struct {
	store  storage.Store
	videos VideoCreator
	now    func() time.Time
}

func NewPipeline(store storage.Store, videos VideoCreator) *Pipeline {
	return &Pipeline{store: store, videos: videos, now: time.Now}
}

// Run executes the upload. onProgress may be nil.
func (p *Pipeline) Run(ctx context.Context, req Request, onProgress func(Progress)) (models.Video, error) {
	report := func(percent int, status, message string) {
		if onProgress != nil {
			onProgress(Progress{Percent: percent, Status: status, Message: message})
		}
	}

	video, err := p.run(ctx, req, report)
	if err != nil {
		log.Printf("upload failed user=%s channel=%s: %v", req.UserID, req.ChannelID, err)
		observability.IncUpload("error")
		report(0, StatusError, err.Error())
		return models.Video{}, err
	}
	observability.IncUpload("complete")
	return video, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, report func(int, string, string)) (models.Video, error) {
	report(0, StatusUploading, "Preparing video...")
	if req.Video == nil {
		return models.Video{}, ErrMissingVideo
	}

	stamp := p.now().UnixMilli()

	report(10, StatusUploading, "Uploading video...")
	videoURL, err := p.store.Upload(ctx, storage.BucketVideos, fmt.Sprintf("%s/%d_video.mp4", req.UserID, stamp), req.Video)
	if err != nil {
		return models.Video{}, fmt.Errorf("upload video: %w", err)
	}

	report(60, StatusUploading, "Uploading thumbnail...")
	thumbnailURL := PlaceholderThumbnailURL
	if req.Thumbnail != nil {
		thumbnailURL, err = p.store.Upload(ctx, storage.BucketThumbnails, fmt.Sprintf("%s/%d_thumbnail.jpg", req.UserID, stamp), req.Thumbnail)
		if err != nil {
			return models.Video{}, fmt.Errorf("upload thumbnail: %w", err)
		}
	}

	report(80, StatusProcessing, "Creating video record...")
	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	video, err := p.videos.CreateVideo(ctx, models.Video{
		ChannelID:    req.ChannelID,
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		Duration:     req.Duration,
		Category:     req.Category,
		IsShort:      req.IsShort,
		Visibility:   visibility,
	})
	if err != nil {
		return models.Video{}, fmt.Errorf("create video record: %w", err)
	}

	report(100, StatusComplete, "Upload complete!")
	return video, nil
}

// RemoveObjects deletes the stored blobs of a video. Failures are logged
// and skipped; URLs the store did not issue are ignored.
func RemoveObjects(ctx context.Context, store storage.Store, video models.Video) {
	for bucket, url := range map[string]string{
		storage.BucketVideos:     video.VideoURL,
		storage.BucketThumbnails: video.ThumbnailURL,
	} {
		objectPath, ok := store.ObjectPath(bucket, url)
		if !ok {
			continue
		}
		if err := store.Delete(ctx, bucket, objectPath); err != nil {
			log.Printf("delete object bucket=%s path=%s: %v", bucket, objectPath, err)
		}
	}
}
