package model

import (
	"context"
	"io"
)

// ProgressFunc receives upload progress as a percentage in [0, 100].
type ProgressFunc func(percent int)

// Uploader stores media files and returns their durable URL.
type Uploader interface {
	Upload(ctx context.Context, folder, filename string, reader io.Reader, size int64, onProgress ProgressFunc) (string, error)
}
