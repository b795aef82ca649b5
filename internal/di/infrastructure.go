package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fastpix01-lab/fruitamruth/internal/platform/auth"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/config"
	pfirestore "github.com/fastpix01-lab/fruitamruth/internal/platform/firestore"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/idempotency"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/jobs"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/storage"
	"github.com/fastpix01-lab/fruitamruth/internal/repositories"
	firestoreRepo "github.com/fastpix01-lab/fruitamruth/internal/repositories/firestore"
	"github.com/fastpix01-lab/fruitamruth/internal/services"
	"github.com/fastpix01-lab/fruitamruth/internal/session"
)

// Infrastructure carries the external clients NewContainer builds services on.
type Infrastructure struct {
	Registry repositories.Registry
	Images   services.ProductImageStore
	Events   services.OrderEventPublisher
	Sessions session.Store
	Replays  idempotency.Store
	Verifier auth.TokenVerifier
	Logger   *zap.Logger
	Clock    func() time.Time
	Build    services.BuildInfo
	// Closers run in reverse order from Container.Close.
	Closers []func(context.Context) error
}

// NewInfrastructure opens the Google Cloud and Redis clients described by cfg.
// On error every client opened so far is closed before returning.
func NewInfrastructure(ctx context.Context, cfg config.Config, logger *zap.Logger, build services.BuildInfo) (infra Infrastructure, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	infra = Infrastructure{Logger: logger, Clock: time.Now, Build: build}
	defer func() {
		if err == nil {
			return
		}
		for i := len(infra.Closers) - 1; i >= 0; i-- {
			_ = infra.Closers[i](context.Background())
		}
	}()

	var checks []repositories.DependencyCheck

	provider := pfirestore.NewProvider(cfg.Firestore)
	checks = append(checks, repositories.DependencyCheck{Name: "firestore", Check: provider.Ping})

	storageClient, err := gcs.NewClient(ctx)
	if err != nil {
		return infra, fmt.Errorf("initialise storage client: %w", err)
	}
	infra.Closers = append(infra.Closers, func(context.Context) error { return storageClient.Close() })
	bucket, err := storage.NewBucketStore(storageClient, cfg.Storage.ImagesBucket)
	if err != nil {
		return infra, fmt.Errorf("initialise image bucket: %w", err)
	}
	images, err := storage.NewImages(bucket, storage.ImagesConfig{
		Bucket:        cfg.Storage.ImagesBucket,
		Prefix:        cfg.Storage.ImagesPrefix,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		MaxBytes:      cfg.Storage.MaxImageBytes,
	})
	if err != nil {
		return infra, fmt.Errorf("initialise images: %w", err)
	}
	infra.Images = images
	checks = append(checks, repositories.DependencyCheck{Name: "storage", Check: bucket.Ping})

	if cfg.PubSub.ProjectID != "" {
		topic, closeTopic, err := openOrderTopic(ctx, cfg.PubSub)
		if err != nil {
			return infra, err
		}
		infra.Closers = append(infra.Closers, closeTopic)
		publisher, err := jobs.NewPubSubOrderPublisher(topic)
		if err != nil {
			return infra, fmt.Errorf("initialise order publisher: %w", err)
		}
		infra.Events = publisher
		checks = append(checks, repositories.DependencyCheck{
			Name:     "pubsub",
			Optional: true,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", cfg.PubSub.OrderTopic)
				}
				return nil
			},
		})
	} else {
		logger.Warn("pubsub project not configured; order events are disabled")
	}

	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		infra.Closers = append(infra.Closers, func(context.Context) error { return client.Close() })
		store, err := session.NewRedisStore(client)
		if err != nil {
			return infra, err
		}
		infra.Sessions = store
		checks = append(checks, repositories.DependencyCheck{Name: "redis", Check: store.Ping})
		replays, err := idempotency.NewRedisStore(client)
		if err != nil {
			return infra, err
		}
		infra.Replays = replays
	default:
		infra.Sessions = session.NewMemoryStore(time.Now)
		infra.Replays = idempotency.NewMemoryStore()
	}

	if cfg.Firebase.ProjectID != "" {
		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase, 0)
		if err != nil {
			return infra, fmt.Errorf("initialise firebase verifier: %w", err)
		}
		infra.Verifier = verifier
	} else {
		logger.Warn("firebase project not configured; admin routes will reject every request")
	}

	health, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return infra, fmt.Errorf("initialise health repository: %w", err)
	}
	registry, err := firestoreRepo.NewRegistry(provider, health)
	if err != nil {
		return infra, fmt.Errorf("initialise firestore registry: %w", err)
	}
	infra.Registry = registry
	return infra, nil
}

func openOrderTopic(ctx context.Context, cfg config.PubSubConfig) (*pubsub.Topic, func(context.Context) error, error) {
	var opts []option.ClientOption
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		opts = append(opts,
			option.WithEndpoint(host),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("initialise pubsub client: %w", err)
	}
	topicName := strings.TrimSpace(cfg.OrderTopic)
	if topicName == "" {
		_ = client.Close()
		return nil, nil, errors.New("pubsub order topic is required")
	}
	topic := client.Topic(topicName)
	closeFn := func(context.Context) error {
		topic.Stop()
		return client.Close()
	}
	return topic, closeFn, nil
}
