package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"vidchat-service/internal/storage"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error) {
	args := m.Called(ctx, bucket, objectPath, r)
	return args.String(0), args.Error(1)
}

func (m *StoreMock) Delete(ctx context.Context, bucket, objectPath string) error {
	args := m.Called(ctx, bucket, objectPath)
	return args.Error(0)
}

func (m *StoreMock) PublicURL(bucket, objectPath string) string {
	args := m.Called(bucket, objectPath)
	return args.String(0)
}

func (m *StoreMock) ObjectPath(bucket, publicURL string) (string, bool) {
	args := m.Called(bucket, publicURL)
	return args.String(0), args.Bool(1)
}

var _ storage.Store = (*StoreMock)(nil)
