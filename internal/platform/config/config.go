package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	envPrefix = "STOREFRONT_"

	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultRequestTimeout  = 60 * time.Second
	defaultImagesPrefix    = "product-images"
	defaultPublicBaseURL   = "https://storage.googleapis.com"
	defaultMaxImageBytes   = 5 << 20
	defaultOrderTopic      = "orders"
	defaultSessionStore    = SessionStoreMemory
	defaultSessionCookie   = "fa_session"
	defaultSessionTTL      = 24 * time.Hour
	defaultGatewayDelay    = 2 * time.Second
	defaultReplayTTL       = 24 * time.Hour
	defaultPublicPerMinute = 120
	defaultPublicBurst     = 20
	defaultEnvironment     = "local"
	minSigningKeyLength    = 32
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	Storage     StorageConfig
	PubSub      PubSubConfig
	Session     SessionConfig
	Checkout    CheckoutConfig
	RateLimits  RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// FirebaseConfig stores Firebase project settings used for admin sign-in.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig describes where product images live.
type StorageConfig struct {
	ImagesBucket  string
	ImagesPrefix  string
	PublicBaseURL string
	MaxImageBytes int64
}

// PubSubConfig describes the order event topic.
type PubSubConfig struct {
	ProjectID    string
	OrderTopic   string
	EmulatorHost string
}

// SessionConfig controls storefront browser sessions.
type SessionConfig struct {
	Store         string
	CookieName    string
	SigningKey    string
	TTL           time.Duration
	SecureCookie  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// CheckoutConfig tunes the checkout wizard.
type CheckoutConfig struct {
	GatewayDelay  time.Duration
	RepriceOrders bool
	// ReplayTTL is how long responses to keyed order writes stay replayable.
	ReplayTTL time.Duration
}

// RateLimitConfig controls throttling of anonymous writes.
type RateLimitConfig struct {
	PublicPerMinute int
	PublicBurst     int
}

// SecretResolver resolves references to external secrets such as Secret Manager URIs.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret calls f.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists configuration fields that are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the offending field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes a failure resolving a secret reference.
type SecretError struct {
	Field string
	Ref   string
	Err   error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for %s (ref %q): %v", e.Field, e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the dotenv file path.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv stops Load from consulting the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// EnvironmentValues returns the merged environment (dotenv < process env < explicit map)
// so callers can build dependencies such as the secret fetcher before calling Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(dotEnv))
	for key, value := range dotEnv {
		values[key] = value
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[strings.TrimSpace(key)] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return values, nil
}

// Load assembles configuration from defaults, dotenv, the environment and resolved secrets.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)

	values, err := EnvironmentValues(opts...)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		value, ok := values[envPrefix+key]
		return value, ok
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "ENVIRONMENT", defaultEnvironment)),
		Server: ServerConfig{
			Port:           stringWithDefault(lookup, "SERVER_PORT", defaultPort),
			ReadTimeout:    durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			ImagesBucket:  stringWithDefault(lookup, "STORAGE_IMAGES_BUCKET", ""),
			ImagesPrefix:  strings.Trim(stringWithDefault(lookup, "STORAGE_IMAGES_PREFIX", defaultImagesPrefix), "/"),
			PublicBaseURL: strings.TrimRight(stringWithDefault(lookup, "STORAGE_PUBLIC_BASE_URL", defaultPublicBaseURL), "/"),
			MaxImageBytes: int64(intWithDefault(lookup, "STORAGE_MAX_IMAGE_BYTES", defaultMaxImageBytes)),
		},
		PubSub: PubSubConfig{
			ProjectID:    stringWithDefault(lookup, "PUBSUB_PROJECT_ID", ""),
			OrderTopic:   stringWithDefault(lookup, "PUBSUB_ORDER_TOPIC", defaultOrderTopic),
			EmulatorHost: stringWithDefault(lookup, "PUBSUB_EMULATOR_HOST", ""),
		},
		Session: SessionConfig{
			Store:         strings.ToLower(stringWithDefault(lookup, "SESSION_STORE", defaultSessionStore)),
			CookieName:    stringWithDefault(lookup, "SESSION_COOKIE_NAME", defaultSessionCookie),
			SigningKey:    stringWithDefault(lookup, "SESSION_SIGNING_KEY", ""),
			TTL:           durationWithDefault(lookup, "SESSION_TTL", defaultSessionTTL),
			SecureCookie:  boolWithDefault(lookup, "SESSION_SECURE_COOKIE", false),
			RedisAddr:     stringWithDefault(lookup, "SESSION_REDIS_ADDR", ""),
			RedisPassword: stringWithDefault(lookup, "SESSION_REDIS_PASSWORD", ""),
			RedisDB:       intWithDefault(lookup, "SESSION_REDIS_DB", 0),
		},
		Checkout: CheckoutConfig{
			GatewayDelay:  durationWithDefault(lookup, "CHECKOUT_GATEWAY_DELAY", defaultGatewayDelay),
			RepriceOrders: boolWithDefault(lookup, "CHECKOUT_REPRICE_ORDERS", true),
			ReplayTTL:     durationWithDefault(lookup, "CHECKOUT_REPLAY_TTL", defaultReplayTTL),
		},
		RateLimits: RateLimitConfig{
			PublicPerMinute: intWithDefault(lookup, "RATELIMIT_PUBLIC_PER_MIN", defaultPublicPerMinute),
			PublicBurst:     intWithDefault(lookup, "RATELIMIT_PUBLIC_BURST", defaultPublicBurst),
		},
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firebase.ProjectID
	}

	secretFields := []struct {
		name  string
		field *string
	}{
		{"Session.SigningKey", &cfg.Session.SigningKey},
		{"Session.RedisPassword", &cfg.Session.RedisPassword},
	}
	for _, target := range secretFields {
		resolved, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			var secretErr *SecretError
			if errors.As(err, &secretErr) {
				secretErr.Field = target.name
			}
			return Config{}, err
		}
		*target.field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Storage.ImagesBucket == "" {
		missing = append(missing, "Storage.ImagesBucket")
	}
	if cfg.Storage.MaxImageBytes <= 0 {
		missing = append(missing, "Storage.MaxImageBytes")
	}
	if strings.TrimSpace(cfg.PubSub.OrderTopic) == "" {
		missing = append(missing, "PubSub.OrderTopic")
	}
	if len(cfg.Session.SigningKey) < minSigningKeyLength {
		missing = append(missing, "Session.SigningKey")
	}
	if cfg.Session.TTL <= 0 {
		missing = append(missing, "Session.TTL")
	}
	switch cfg.Session.Store {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if cfg.Session.RedisAddr == "" {
			missing = append(missing, "Session.RedisAddr")
		}
	default:
		missing = append(missing, "Session.Store")
	}
	if cfg.Checkout.GatewayDelay < 0 {
		missing = append(missing, "Checkout.GatewayDelay")
	}
	if cfg.RateLimits.PublicPerMinute <= 0 {
		missing = append(missing, "RateLimits.PublicPerMinute")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	value, ok := lookup(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}
