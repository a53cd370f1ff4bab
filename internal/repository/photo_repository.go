package repository

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PhotoRepository stores listing photos in the "photos" GridFS bucket.
type PhotoRepository struct {
	bucket *gridfs.Bucket
}

func NewPhotoRepository(db *mongo.Database) (*PhotoRepository, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("photos"))
	if err != nil {
		return nil, fmt.Errorf("PhotoRepository: %w", err)
	}
	return &PhotoRepository{bucket: bucket}, nil
}

// Upload streams r into GridFS and returns the file id as hex.
func (r *PhotoRepository) Upload(ctx context.Context, filename string, src io.Reader) (string, error) {
	stream, err := r.bucket.OpenUploadStream(filename)
	if err != nil {
		return "", fmt.Errorf("PhotoRepository.Upload: %w", err)
	}
	defer stream.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(deadline)
	}

	if _, err := io.Copy(stream, src); err != nil {
		_ = stream.Abort()
		return "", fmt.Errorf("PhotoRepository.Upload: %w", err)
	}
	return stream.FileID.(primitive.ObjectID).Hex(), nil
}

func (r *PhotoRepository) Download(ctx context.Context, photoID string) ([]byte, error) {
	objID, err := primitive.ObjectIDFromHex(photoID)
	if err != nil {
		return nil, fmt.Errorf("PhotoRepository.Download: %w", ErrNotFound)
	}

	stream, err := r.bucket.OpenDownloadStream(objID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, fmt.Errorf("PhotoRepository.Download: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("PhotoRepository.Download: %w", err)
	}
	defer stream.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("PhotoRepository.Download: %w", err)
	}
	return data, nil
}

// Delete removes a photo. Missing files are not an error.
func (r *PhotoRepository) Delete(ctx context.Context, photoID string) error {
	objID, err := primitive.ObjectIDFromHex(photoID)
	if err != nil {
		return nil
	}
	if err := r.bucket.DeleteContext(ctx, objID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("PhotoRepository.Delete: %w", err)
	}
	return nil
}
