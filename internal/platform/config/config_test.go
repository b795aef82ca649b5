package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func baseEnv() map[string]string {
	return map[string]string{
		"STOREFRONT_FIREBASE_PROJECT_ID":   "fruit-amruth-dev",
		"STOREFRONT_STORAGE_IMAGES_BUCKET": "fruit-amruth-images",
		"STOREFRONT_SESSION_SIGNING_KEY":   testSigningKey,
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 60*time.Second {
		t.Errorf("unexpected request timeout: %s", cfg.Server.RequestTimeout)
	}
	if cfg.Firestore.ProjectID != "fruit-amruth-dev" || cfg.PubSub.ProjectID != "fruit-amruth-dev" {
		t.Errorf("expected project ids to default to firebase project, got %+v %+v", cfg.Firestore, cfg.PubSub)
	}
	if cfg.Storage.ImagesPrefix != "product-images" || cfg.Storage.MaxImageBytes != 5<<20 {
		t.Errorf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Session.Store != SessionStoreMemory || cfg.Session.CookieName != "fa_session" || cfg.Session.TTL != 24*time.Hour {
		t.Errorf("unexpected session defaults %+v", cfg.Session)
	}
	if cfg.Checkout.GatewayDelay != 2*time.Second || !cfg.Checkout.RepriceOrders || cfg.Checkout.ReplayTTL != 24*time.Hour {
		t.Errorf("unexpected checkout defaults %+v", cfg.Checkout)
	}
	if cfg.Environment != "local" {
		t.Errorf("expected local environment, got %s", cfg.Environment)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := baseEnv()
	env["STOREFRONT_SERVER_PORT"] = "9090"
	env["STOREFRONT_SESSION_STORE"] = "Redis"
	env["STOREFRONT_SESSION_REDIS_ADDR"] = "localhost:6379"
	env["STOREFRONT_SESSION_REDIS_PASSWORD"] = "sm://redis/password"
	env["STOREFRONT_SESSION_SIGNING_KEY"] = "secret://session/signing"
	env["STOREFRONT_CHECKOUT_GATEWAY_DELAY"] = "500ms"
	env["STOREFRONT_CHECKOUT_REPRICE_ORDERS"] = "off"
	env["STOREFRONT_STORAGE_IMAGES_PREFIX"] = "/juice-images/"

	var refs []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		refs = append(refs, ref)
		switch ref {
		case "secret://session/signing":
			return testSigningKey + "-prod", nil
		case "secret://redis/password":
			return " hunter2 ", nil
		}
		return "", errors.New("unknown ref")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port override, got %s", cfg.Server.Port)
	}
	if cfg.Session.Store != SessionStoreRedis || cfg.Session.RedisPassword != "hunter2" {
		t.Errorf("unexpected session config %+v", cfg.Session)
	}
	if cfg.Session.SigningKey != testSigningKey+"-prod" {
		t.Errorf("expected resolved signing key")
	}
	if cfg.Checkout.GatewayDelay != 500*time.Millisecond || cfg.Checkout.RepriceOrders {
		t.Errorf("unexpected checkout config %+v", cfg.Checkout)
	}
	if cfg.Storage.ImagesPrefix != "juice-images" {
		t.Errorf("expected trimmed prefix, got %s", cfg.Storage.ImagesPrefix)
	}
	if !slices.Contains(refs, "secret://redis/password") {
		t.Errorf("expected sm:// reference normalised, got %v", refs)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_SESSION_STORE":       "memcached",
		"STOREFRONT_SESSION_SIGNING_KEY": "short",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := verr.Fields()
	for _, want := range []string{"Firebase.ProjectID", "Firestore.ProjectID", "Storage.ImagesBucket", "Session.SigningKey", "Session.Store"} {
		if !slices.Contains(fields, want) {
			t.Errorf("expected %s in %v", want, fields)
		}
	}
}

func TestLoadRedisRequiresAddress(t *testing.T) {
	env := baseEnv()
	env["STOREFRONT_SESSION_STORE"] = "redis"
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) || !slices.Contains(verr.Fields(), "Session.RedisAddr") {
		t.Fatalf("expected redis addr validation error, got %v", err)
	}
}

func TestLoadSecretWithoutResolver(t *testing.T) {
	env := baseEnv()
	env["STOREFRONT_SESSION_SIGNING_KEY"] = "secret://session/signing"
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected secret error, got %v", err)
	}
	if secretErr.Field != "Session.SigningKey" || !errors.Is(err, errSecretResolverNotConfigured) {
		t.Fatalf("unexpected secret error %+v", secretErr)
	}
}

func TestLoadReadsDotEnvWithLowerPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\n" +
		"export STOREFRONT_FIREBASE_PROJECT_ID=\"from-dotenv\"\n" +
		"STOREFRONT_STORAGE_IMAGES_BUCKET=bucket-dotenv\n" +
		"STOREFRONT_SESSION_SIGNING_KEY=" + testSigningKey + "\n" +
		"STOREFRONT_SERVER_PORT=7000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"STOREFRONT_SERVER_PORT": "7100"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.ProjectID != "from-dotenv" || cfg.Storage.ImagesBucket != "bucket-dotenv" {
		t.Errorf("expected dotenv values, got %+v %+v", cfg.Firebase, cfg.Storage)
	}
	if cfg.Server.Port != "7100" {
		t.Errorf("expected env map to override dotenv, got %s", cfg.Server.Port)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	values, err := EnvironmentValues(WithEnvFile(""), WithoutSystemEnv(), WithEnvMap(map[string]string{"A": "1"}))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}
	if values["A"] != "1" || len(values) != 1 {
		t.Fatalf("unexpected values %v", values)
	}
}
