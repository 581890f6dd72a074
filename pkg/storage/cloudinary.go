package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// Store persists verification documents (identity docs, bank proofs, dispute
// evidence) and returns a durable URL for each.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

type cloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	log    *zap.Logger
}

func NewCloudinaryStore(cloudinaryURL, folder string, log *zap.Logger) (Store, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}

	return &cloudinaryStore{
		cld:    cld,
		folder: folder,
		log:    log.With(zap.String("storage", "cloudinary")),
	}, nil
}

func (s *cloudinaryStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     key,
		ResourceType: "auto",
	})
	if err != nil {
		s.log.Error("Failed to upload document", zap.Error(err), zap.String("key", key))
		return "", fmt.Errorf("upload document %s: %w", key, err)
	}

	s.log.Info("Document uploaded",
		zap.String("key", key),
		zap.Int("size_bytes", len(data)),
	)

	return resp.SecureURL, nil
}
