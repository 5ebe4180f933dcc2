package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/redis/go-redis/v9"
)

// Constants scoped to this file
const (
	trs_redisKeyPrefix = "mcm_result_store_index"
)

// TempResultStore keeps completed batch results around for a limited time:
// payload bytes live in blob storage (content-addressed by hash), the
// user+key -> blob name index lives in Redis with a TTL.

type TempResultStoreFactory struct {
	redisClient     *redis.Client
	containerClient *container.Client
	ttlDuration     time.Duration
}

type TempResultStore struct {
	redisClient     *redis.Client
	containerClient *container.Client
	ttlDuration     time.Duration
	userId          string
}

// Creates factory for later creation of TempResultStore instances, so the
// Redis and blob clients are shared between users.
// Note that function will panic if it fails to create or verify the clients.
func NewTempResultStoreFactory(redisUrl string, storageAccountConnStr string, blobContainerName string, ttlInSeconds int) *TempResultStoreFactory {
	slog.Info("Creating TempResultStoreFactory", "redisUrl", redisUrl, "blobContainerName", blobContainerName, "ttl(s)", ttlInSeconds)

	redisOpts, err := redis.ParseURL(redisUrl)
	if err != nil {
		panic(fmt.Sprintf("failed to parse Redis URL: %v", err))
	}

	redisClient := redis.NewClient(redisOpts)

	containerClient, err := container.NewClientFromConnectionString(storageAccountConnStr, blobContainerName, nil)
	if err != nil {
		panic(fmt.Sprintf("failed to create container client: %v", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("failed to connect to Redis: %v", err))
	}

	if _, err := containerClient.GetProperties(ctx, nil); err != nil {
		panic(fmt.Sprintf("failed to access blob container: %v", err))
	}

	return &TempResultStoreFactory{
		redisClient:     redisClient,
		containerClient: containerClient,
		ttlDuration:     time.Duration(ttlInSeconds) * time.Second,
	}
}

// Returns a user scoped result store for a given user.
func (f *TempResultStoreFactory) ForUser(userId string) *TempResultStore {
	if userId == "" {
		panic("userId must not be empty")
	}

	return &TempResultStore{
		userId:          userId,
		redisClient:     f.redisClient,
		containerClient: f.containerClient,
		ttlDuration:     f.ttlDuration,
	}
}

func (s *TempResultStore) PutBytes(ctx context.Context, key string, payloadBytes []byte, blobPrefix string, blobExtension string) error {
	payloadHash := computePayloadHash(payloadBytes)

	blobName := "user__" + s.userId + "/"
	if blobPrefix != "" {
		blobName += blobPrefix + "---"
	}
	blobName += "sha__" + payloadHash
	if blobExtension != "" {
		blobName += "." + blobExtension
	}

	err := uploadOrRefreshBlob(ctx, s.containerClient, blobName, payloadBytes)
	if err != nil {
		return fmt.Errorf("failed to upload or refresh blob: %w", err)
	}

	redisKey := s.makeFullRedisKey(key)
	slog.Debug("TempResultStore.PutBytes()", "redisKey", redisKey, "blobName", blobName)

	err = s.redisClient.Set(ctx, redisKey, blobName, s.ttlDuration).Err()
	if err != nil {
		return fmt.Errorf("failed to set Redis key: %w", err)
	}

	return nil
}

// GetBytes resolves the Redis index entry and downloads the payload. Returns
// an error if the key has expired or was never stored.
func (s *TempResultStore) GetBytes(ctx context.Context, key string) ([]byte, error) {
	redisKey := s.makeFullRedisKey(key)

	blobName, err := s.redisClient.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("no stored result for key: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read Redis key: %w", err)
	}

	blobClient := s.containerClient.NewBlockBlobClient(blobName)

	props, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get blob properties: %w", err)
	}

	size := *props.ContentLength
	if size == 0 {
		return []byte{}, nil
	}

	byteArr := make([]byte, size)
	_, err = blobClient.DownloadBuffer(ctx, byteArr, &blob.DownloadBufferOptions{Concurrency: 1})
	if err != nil {
		return nil, fmt.Errorf("blob download failed: %w", err)
	}

	return byteArr, nil
}

func (s *TempResultStore) makeFullRedisKey(key string) string {
	return trs_redisKeyPrefix + ":user:" + s.userId + ":" + key
}

// Computes the SHA256 hash of the payload bytes and returns the hash as a hex-encoded string.
func computePayloadHash(payload []byte) string {
	checksum := sha256.Sum256(payload)
	return hex.EncodeToString(checksum[:])
}

func uploadOrRefreshBlob(ctx context.Context, containerClient *container.Client, blobName string, payloadBytes []byte) error {
	blobClient := containerClient.NewBlockBlobClient(blobName)

	// Check if blob already exists
	_, err := blobClient.GetProperties(ctx, nil)
	if err == nil {
		// Blob exists - update its metadata so a lifecycle policy keyed on the
		// last modified time keeps it alive
		timeNow := time.Now().UTC().Format(time.RFC3339)
		metadata := map[string]*string{"refreshedAt": &timeNow}

		slog.Debug("uploadOrRefreshBlob() - blob already exists, updating metadata")
		_, err := blobClient.SetMetadata(ctx, metadata, nil)
		if err != nil {
			return fmt.Errorf("updating metadata failed: %w", err)
		}
		return nil
	}

	// Blob does not exist, so upload it
	slog.Debug("uploadOrRefreshBlob() - uploading blob")

	neverStr := "never"
	metadata := map[string]*string{"refreshedAt": &neverStr}
	_, err = blobClient.UploadBuffer(ctx, payloadBytes, &azblob.UploadBufferOptions{Metadata: metadata})
	if err != nil {
		return fmt.Errorf("blob upload failed: %w", err)
	}

	return nil
}
