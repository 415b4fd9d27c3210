package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"autodj/logger"

	"github.com/minio/minio-go/v7"
)

// Object name prefixes inside the bucket.
const (
	mixPrefix = "mixes/"
	qrPrefix  = "qr/"
)

// UploadMix uploads a finished mix MP3 and returns its object name.
func UploadMix(ctx context.Context, objectName, filePath string) (string, error) {
	client := GetMinioClient()
	if client == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	object := mixPrefix + objectName
	_, err := client.FPutObject(ctx, minioBucket, object, filePath, minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload mix %s: %w", objectName, err)
	}

	logger.Info("mix uploaded",
		logger.String("object", object),
		logger.String("file", filePath))
	return object, nil
}

// OpenMix opens a stored mix for streaming to a client.
func OpenMix(ctx context.Context, object string) (io.ReadCloser, error) {
	client := GetMinioClient()
	if client == nil {
		return nil, fmt.Errorf("MinIO client not initialized")
	}

	obj, err := client.GetObject(ctx, minioBucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open mix object %s: %w", object, err)
	}
	return obj, nil
}

// UploadQR uploads a session QR PNG so secondary displays can fetch it.
func UploadQR(ctx context.Context, token string, png []byte) error {
	client := GetMinioClient()
	if client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	object := qrPrefix + "qr_" + token + ".png"
	_, err := client.PutObject(ctx, minioBucket, object, bytes.NewReader(png), int64(len(png)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return fmt.Errorf("failed to upload QR for session %s: %w", token, err)
	}
	return nil
}
