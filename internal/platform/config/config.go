package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 60 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultBatchRatePerMinute   = 30
	defaultSquareEnvironment    = SquareSandbox
	defaultSquareAPIVersion     = "2024-07-17"
	defaultSquareCurrency       = "USD"
	defaultSquareTimeout        = 15 * time.Second
	defaultSquareRatePerSec     = 10.0
	defaultSquareRateBurst      = 5
	defaultSquareRetryBackoff   = 500 * time.Millisecond
	defaultCountConcurrency     = 4
	defaultBlobBackend          = BlobBackendFirestore
	defaultBlobCollection       = "portal_blobs"
	defaultBlobPrefix           = "blobs/"
	defaultSecurityEnvironment  = "local"
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200

	squareSandboxBaseURL    = "https://connect.squareupsandbox.com"
	squareProductionBaseURL = "https://connect.squareup.com"
)

// Square environments.
const (
	SquareSandbox    = "sandbox"
	SquareProduction = "production"
)

// Blob store backends.
const (
	BlobBackendFirestore = "firestore"
	BlobBackendGCS       = "gcs"
	BlobBackendMemory    = "memory"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Square      SquareConfig
	Sync        SyncConfig
	Blob        BlobConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	PubSub      PubSubConfig
	Security    SecurityConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	// BatchRatePerMinute caps batch writes per member; zero disables the limit.
	BatchRatePerMinute int
}

// SquareConfig holds catalog provider credentials and call limits.
type SquareConfig struct {
	AccessToken   string
	Environment   string
	BaseURL       string
	APIVersion    string
	LocationID    string
	Currency      string
	Timeout       time.Duration
	RatePerSecond float64
	RateBurst     int
	RetryBackoff  time.Duration
}

// SyncConfig toggles catalog synchronisation behaviour.
type SyncConfig struct {
	NamespacedSKU            bool
	ResolveReportingOnUpdate bool
	CountConcurrency         int
}

// BlobConfig selects where the archive blob lives.
type BlobConfig struct {
	Backend    string
	Collection string
	Bucket     string
	Prefix     string
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	// CheckRevoked rejects tokens of members whose sessions were revoked or disabled.
	CheckRevoked bool
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig enables archive event publishing when Topic is set.
type PubSubConfig struct {
	ProjectID string
	Topic     string
}

// SecurityConfig groups deployment-level security settings.
type SecurityConfig struct {
	Environment string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets failed to resolve.
type MissingSecretsError struct {
	secrets []missingSecret
}

type missingSecret struct {
	name     string
	redacted string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.secrets) == 0 {
		return "missing required secrets"
	}
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// RedactedNames returns a copy of the redacted secret identifiers.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		out = append(out, secret.redacted)
	}
	sort.Strings(out)
	return out
}

// Names returns the underlying secret identifiers.
func (e *MissingSecretsError) Names() []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		out = append(out, secret.name)
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile               string
	envMap                map[string]string
	useSystemEnv          bool
	secret                SecretResolver
	requiredSecrets       []string
	panicOnMissingSecrets bool
}

// EnvironmentValues returns the effective key/value environment map after applying the same precedence
// rules as Load (dotenv < OS env < explicit env map). Callers use it to build the secret fetcher
// before invoking Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(dotEnvValues))
	for key, value := range dotEnvValues {
		values[key] = value
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				continue
			}
			values[key] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}

	return values, nil
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks the provided secret identifiers as mandatory.
// Identifiers match the config field names recorded by the loader (e.g. "Square.AccessToken").
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// WithPanicOnMissingSecrets causes Load to panic when required secrets are missing.
func WithPanicOnMissingSecrets() Option {
	return func(o *loaderOptions) {
		o.panicOnMissingSecrets = true
	}
}

// Load assembles the portal configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:               stringWithDefault(lookup, "PORTAL_SERVER_PORT", defaultPort),
			ReadTimeout:        durationWithDefault(lookup, "PORTAL_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:       durationWithDefault(lookup, "PORTAL_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:        durationWithDefault(lookup, "PORTAL_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			BatchRatePerMinute: intWithDefault(lookup, "PORTAL_SERVER_BATCH_RATE_PER_MIN", defaultBatchRatePerMinute),
		},
		Square: SquareConfig{
			AccessToken:   stringWithDefault(lookup, "PORTAL_SQUARE_ACCESS_TOKEN", ""),
			Environment:   strings.ToLower(stringWithDefault(lookup, "PORTAL_SQUARE_ENVIRONMENT", defaultSquareEnvironment)),
			BaseURL:       stringWithDefault(lookup, "PORTAL_SQUARE_BASE_URL", ""),
			APIVersion:    stringWithDefault(lookup, "PORTAL_SQUARE_API_VERSION", defaultSquareAPIVersion),
			LocationID:    stringWithDefault(lookup, "PORTAL_SQUARE_LOCATION_ID", ""),
			Currency:      strings.ToUpper(stringWithDefault(lookup, "PORTAL_SQUARE_CURRENCY", defaultSquareCurrency)),
			Timeout:       durationWithDefault(lookup, "PORTAL_SQUARE_TIMEOUT", defaultSquareTimeout),
			RatePerSecond: floatWithDefault(lookup, "PORTAL_SQUARE_RATE_PER_SEC", defaultSquareRatePerSec),
			RateBurst:     intWithDefault(lookup, "PORTAL_SQUARE_RATE_BURST", defaultSquareRateBurst),
			RetryBackoff:  durationWithDefault(lookup, "PORTAL_SQUARE_RETRY_BACKOFF", defaultSquareRetryBackoff),
		},
		Sync: SyncConfig{
			NamespacedSKU:            boolWithDefault(lookup, "PORTAL_SYNC_NAMESPACED_SKU", false),
			ResolveReportingOnUpdate: boolWithDefault(lookup, "PORTAL_SYNC_REPORTING_ON_UPDATE", false),
			CountConcurrency:         intWithDefault(lookup, "PORTAL_SYNC_COUNT_CONCURRENCY", defaultCountConcurrency),
		},
		Blob: BlobConfig{
			Backend:    strings.ToLower(stringWithDefault(lookup, "PORTAL_BLOB_BACKEND", defaultBlobBackend)),
			Collection: stringWithDefault(lookup, "PORTAL_BLOB_COLLECTION", defaultBlobCollection),
			Bucket:     stringWithDefault(lookup, "PORTAL_BLOB_BUCKET", ""),
			Prefix:     stringWithDefault(lookup, "PORTAL_BLOB_PREFIX", defaultBlobPrefix),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "PORTAL_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "PORTAL_FIREBASE_CREDENTIALS_FILE", ""),
			CheckRevoked:    boolWithDefault(lookup, "PORTAL_FIREBASE_CHECK_REVOKED", true),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "PORTAL_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "PORTAL_FIRESTORE_EMULATOR_HOST", ""),
		},
		PubSub: PubSubConfig{
			ProjectID: stringWithDefault(lookup, "PORTAL_PUBSUB_PROJECT_ID", ""),
			Topic:     stringWithDefault(lookup, "PORTAL_PUBSUB_ARCHIVE_TOPIC", ""),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "PORTAL_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "PORTAL_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "PORTAL_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "PORTAL_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "PORTAL_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	// Firestore and Pub/Sub default to the Firebase project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.Square.BaseURL == "" {
		cfg.Square.BaseURL = squareBaseURL(cfg.Square.Environment)
	}
	cfg.Square.BaseURL = strings.TrimRight(cfg.Square.BaseURL, "/")

	resolvedSecrets := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Square.AccessToken", &cfg.Square.AccessToken},
	}
	for _, target := range secretFields {
		resolved, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = resolved
		resolvedSecrets[target.name] = strings.TrimSpace(resolved)
	}

	if missing := findMissingSecrets(options.requiredSecrets, resolvedSecrets); missing != nil {
		if options.panicOnMissingSecrets {
			fmt.Fprintf(os.Stderr, "config: %s\n", missing.Error())
			panic(missing)
		}
		return Config{}, missing
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func squareBaseURL(environment string) string {
	if environment == SquareProduction {
		return squareProductionBaseURL
	}
	return squareSandboxBaseURL
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Square.AccessToken) == "" {
		missing = append(missing, "Square.AccessToken")
	}
	if cfg.Square.Environment != SquareSandbox && cfg.Square.Environment != SquareProduction {
		missing = append(missing, "Square.Environment")
	}
	if cfg.Square.LocationID == "" {
		missing = append(missing, "Square.LocationID")
	}
	if cfg.Square.APIVersion == "" {
		missing = append(missing, "Square.APIVersion")
	}
	if cfg.Square.Timeout <= 0 {
		missing = append(missing, "Square.Timeout")
	}
	if cfg.Square.RatePerSecond <= 0 || cfg.Square.RateBurst <= 0 {
		missing = append(missing, "Square.RatePerSecond")
	}
	if cfg.Sync.CountConcurrency <= 0 {
		missing = append(missing, "Sync.CountConcurrency")
	}
	if cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	switch cfg.Blob.Backend {
	case BlobBackendFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
		if cfg.Blob.Collection == "" {
			missing = append(missing, "Blob.Collection")
		}
	case BlobBackendGCS:
		if cfg.Blob.Bucket == "" {
			missing = append(missing, "Blob.Bucket")
		}
	case BlobBackendMemory:
	default:
		missing = append(missing, "Blob.Backend")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}
