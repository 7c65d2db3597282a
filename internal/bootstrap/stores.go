package bootstrap

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"

	"github.com/novacode/novacode-backend/config"
	chatrepo "github.com/novacode/novacode-backend/internal/chats/repository"
	projectrepo "github.com/novacode/novacode-backend/internal/projects/repository"
	"github.com/novacode/novacode-backend/internal/storage"
)

// OpenStore selects the object store driver named by cfg.Storage.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	sc := cfg.Storage
	opts := storage.Options{
		Bucket:         sc.Bucket,
		PublicBaseURL:  sc.PublicBaseURL,
		AllowOverwrite: sc.OverwriteAllowed(),
	}

	switch sc.Driver {
	case config.DriverGCS:
		bucket, err := OpenBucket(ctx, cfg.GCP.StorageCredentials, sc.Bucket)
		if err != nil {
			return nil, err
		}
		return storage.NewGCSStore(bucket, opts), nil
	case config.DriverS3:
		return storage.NewS3Store(ctx, storage.S3Options{
			Region:       sc.S3Region,
			AccessKey:    sc.S3AccessKey,
			SecretKey:    sc.S3SecretKey,
			Endpoint:     sc.S3Endpoint,
			UsePathStyle: sc.S3PathStyle,
		}, opts)
	case config.DriverMinio:
		return storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  sc.MinioEndpoint,
			AccessKey: sc.MinioAccessKey,
			SecretKey: sc.MinioSecretKey,
			UseSSL:    sc.MinioUseSSL,
		}, opts)
	case config.DriverMemory:
		return storage.NewMemoryStore(opts), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
}

// Repositories groups the metadata repositories.
type Repositories struct {
	Projects  projectrepo.Repository
	Chats     chatrepo.Repository
	Firestore *firestore.Client
}

func (r *Repositories) Close() error {
	if r.Firestore != nil {
		return r.Firestore.Close()
	}
	return nil
}

// OpenRepositories selects the metadata driver named by cfg.Metadata.Driver.
func OpenRepositories(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	mc := cfg.Metadata
	switch mc.Driver {
	case config.DriverFirestore:
		client, err := OpenFirestore(ctx, cfg.GCP.FirebaseCredentials, cfg.GCP.FirebaseProjectID)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Projects:  projectrepo.NewFirestoreRepository(client, mc.ProjectsCollection),
			Chats:     chatrepo.NewFirestoreRepository(client, mc.ChatsCollection),
			Firestore: client,
		}, nil
	case config.DriverMemory:
		return &Repositories{
			Projects: projectrepo.NewMemoryRepository(),
			Chats:    chatrepo.NewMemoryRepository(),
		}, nil
	}
	return nil, fmt.Errorf("unknown metadata driver %q", mc.Driver)
}

// OpenRedis connects the relay cache. An empty address disables it.
func OpenRedis(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	if rc.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
