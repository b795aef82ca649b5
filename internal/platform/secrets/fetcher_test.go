package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fastpix01-lab/fruitamruth/internal/platform/config"
)

const signingKeyResource = "projects/fruit-amruth/secrets/session_signing_key/versions/latest"

func TestResolveCachesRemoteSecret(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.values[signingKeyResource] = "remote-secret"

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("fruit-amruth"), WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	for i := 0; i < 2; i++ {
		got, err := fetcher.Resolve(ctx, "secret://session_signing_key")
		if err != nil || got != "remote-secret" {
			t.Fatalf("Resolve #%d: %q %v", i, got, err)
		}
	}
	if calls := client.callCount(signingKeyResource); calls != 1 {
		t.Fatalf("expected one remote fetch, got %d", calls)
	}
}

func TestResolveAcceptsSmAliasAndOverrides(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.values["projects/other/secrets/redis_password/versions/3"] = "pinned"

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("fruit-amruth"))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	got, err := fetcher.Resolve(ctx, "sm://redis_password?version=3&project=other")
	if err != nil || got != "pinned" {
		t.Fatalf("Resolve: %q %v", got, err)
	}
}

func TestResolveFallsBackWhenSecretManagerUnavailable(t *testing.T) {
	ctx := context.Background()
	fallbackPath := writeFallback(t, "secret://session_signing_key=local-secret\n")

	client := newFakeSecretClient()
	client.errors[signingKeyResource] = status.Error(codes.PermissionDenied, "denied")

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("fruit-amruth"), WithFallbackFile(fallbackPath))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	got, err := fetcher.Resolve(ctx, "secret://session_signing_key")
	if err != nil || got != "local-secret" {
		t.Fatalf("Resolve: %q %v", got, err)
	}
}

func TestResolveDoesNotFallbackOnNotFound(t *testing.T) {
	ctx := context.Background()
	fallbackPath := writeFallback(t, "secret://session_signing_key=local-secret\n")

	client := newFakeSecretClient()
	client.errors[signingKeyResource] = status.Error(codes.NotFound, "missing")

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("fruit-amruth"), WithFallbackFile(fallbackPath))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	if _, err := fetcher.Resolve(ctx, "secret://session_signing_key"); err == nil {
		t.Fatal("expected error when secret is missing")
	}
}

func TestNewFetcherWithoutCredentialsUsesFallback(t *testing.T) {
	ctx := context.Background()
	original := secretManagerClientFactory
	secretManagerClientFactory = func(context.Context, ...option.ClientOption) (*secretmanager.Client, error) {
		return nil, errors.New("no credentials")
	}
	t.Cleanup(func() { secretManagerClientFactory = original })

	fallbackPath := writeFallback(t, "# local dev\nsm://session_signing_key=from-file\n")
	fetcher, err := NewFetcher(ctx, WithFallbackFile(fallbackPath))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	got, err := fetcher.Resolve(ctx, "secret://session_signing_key")
	if err != nil || got != "from-file" {
		t.Fatalf("Resolve: %q %v", got, err)
	}
}

func TestFetcherResolvesConfigReferences(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.values[signingKeyResource] = "0123456789abcdef0123456789abcdef"

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("fruit-amruth"))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	cfg, err := config.Load(ctx,
		config.WithoutSystemEnv(),
		config.WithEnvFile(""),
		config.WithEnvMap(map[string]string{
			"STOREFRONT_FIREBASE_PROJECT_ID":   "fruit-amruth",
			"STOREFRONT_SESSION_SIGNING_KEY":   "secret://session_signing_key",
			"STOREFRONT_STORAGE_IMAGES_BUCKET": "fruit-amruth-media",
		}),
		config.WithSecretResolver(fetcher),
	)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if cfg.Session.SigningKey != "0123456789abcdef0123456789abcdef" {
		t.Fatalf("signing key not resolved: %q", cfg.Session.SigningKey)
	}
}

func writeFallback(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".secrets.local")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fallback: %v", err)
	}
	return path
}

type fakeSecretClient struct {
	mu      sync.Mutex
	values  map[string]string
	errors  map[string]error
	counter map[string]int
}

func newFakeSecretClient() *fakeSecretClient {
	return &fakeSecretClient{
		values:  make(map[string]string),
		errors:  make(map[string]error),
		counter: make(map[string]int),
	}
}

func (f *fakeSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := req.GetName()
	f.counter[name]++
	if err := f.errors[name]; err != nil {
		return nil, err
	}
	if value, ok := f.values[name]; ok {
		return &secretmanagerpb.AccessSecretVersionResponse{Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)}}, nil
	}
	return nil, status.Error(codes.NotFound, "not found")
}

func (f *fakeSecretClient) Close() error { return nil }

func (f *fakeSecretClient) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter[name]
}
