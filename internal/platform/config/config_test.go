package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"PORTAL_FIREBASE_PROJECT_ID": "cbg-dev",
		"PORTAL_SQUARE_ACCESS_TOKEN": "sq-token",
		"PORTAL_SQUARE_LOCATION_ID":  "L123",
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
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Square.Environment != SquareSandbox {
		t.Errorf("expected sandbox environment, got %s", cfg.Square.Environment)
	}
	if cfg.Square.BaseURL != squareSandboxBaseURL {
		t.Errorf("expected sandbox base url, got %s", cfg.Square.BaseURL)
	}
	if cfg.Square.Currency != "USD" {
		t.Errorf("expected USD currency, got %s", cfg.Square.Currency)
	}
	if !cfg.Firebase.CheckRevoked {
		t.Errorf("expected revoked firebase sessions to be rejected by default")
	}
	if cfg.Square.Timeout != defaultSquareTimeout {
		t.Errorf("unexpected square timeout: %s", cfg.Square.Timeout)
	}
	if cfg.Sync.NamespacedSKU || cfg.Sync.ResolveReportingOnUpdate {
		t.Errorf("expected sync flags disabled by default, got %+v", cfg.Sync)
	}
	if cfg.Sync.CountConcurrency != defaultCountConcurrency {
		t.Errorf("unexpected count concurrency: %d", cfg.Sync.CountConcurrency)
	}
	if cfg.Blob.Backend != BlobBackendFirestore || cfg.Blob.Collection != "portal_blobs" {
		t.Errorf("unexpected blob defaults: %+v", cfg.Blob)
	}
	if cfg.Firestore.ProjectID != "cbg-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.PubSub.ProjectID != "cbg-dev" || cfg.PubSub.Topic != "" {
		t.Errorf("unexpected pubsub defaults: %+v", cfg.PubSub)
	}
	if cfg.Security.Environment != "local" {
		t.Errorf("expected default security environment local, got %s", cfg.Security.Environment)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("unexpected default idempotency ttl: %s", cfg.Idempotency.TTL)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"PORTAL_SERVER_PORT":              "9090",
		"PORTAL_SERVER_IDLE_TIMEOUT":      "2m",
		"PORTAL_FIREBASE_PROJECT_ID":      "cbg-prod",
		"PORTAL_FIRESTORE_PROJECT_ID":     "cbg-fire",
		"PORTAL_SQUARE_ACCESS_TOKEN":      "secret://square/token",
		"PORTAL_SQUARE_ENVIRONMENT":       "Production",
		"PORTAL_SQUARE_LOCATION_ID":       "LMAIN",
		"PORTAL_SQUARE_CURRENCY":          "cad",
		"PORTAL_SQUARE_TIMEOUT":           "5s",
		"PORTAL_SQUARE_RATE_PER_SEC":      "2.5",
		"PORTAL_SYNC_NAMESPACED_SKU":      "true",
		"PORTAL_SYNC_REPORTING_ON_UPDATE": "yes",
		"PORTAL_SYNC_COUNT_CONCURRENCY":   "8",
		"PORTAL_BLOB_BACKEND":             "GCS",
		"PORTAL_BLOB_BUCKET":              "cbg-archive",
		"PORTAL_PUBSUB_ARCHIVE_TOPIC":     "artwork-archive",
		"PORTAL_SECURITY_ENVIRONMENT":     "prod",
		"PORTAL_IDEMPOTENCY_HEADER":       "X-Idem-Key",
		"PORTAL_IDEMPOTENCY_TTL":          "48h",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref == "secret://square/token" {
			return "resolved-token", nil
		}
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Square.AccessToken != "resolved-token" {
		t.Errorf("expected resolved square token, got %s", cfg.Square.AccessToken)
	}
	if cfg.Square.BaseURL != squareProductionBaseURL {
		t.Errorf("expected production base url, got %s", cfg.Square.BaseURL)
	}
	if cfg.Square.Currency != "CAD" {
		t.Errorf("expected upper-cased currency, got %s", cfg.Square.Currency)
	}
	if cfg.Square.RatePerSecond != 2.5 {
		t.Errorf("unexpected rate: %v", cfg.Square.RatePerSecond)
	}
	if !cfg.Sync.NamespacedSKU || !cfg.Sync.ResolveReportingOnUpdate || cfg.Sync.CountConcurrency != 8 {
		t.Errorf("unexpected sync config: %+v", cfg.Sync)
	}
	if cfg.Blob.Backend != BlobBackendGCS || cfg.Blob.Bucket != "cbg-archive" {
		t.Errorf("unexpected blob config: %+v", cfg.Blob)
	}
	if cfg.Firestore.ProjectID != "cbg-fire" {
		t.Errorf("unexpected firestore project: %s", cfg.Firestore.ProjectID)
	}
	if cfg.PubSub.Topic != "artwork-archive" {
		t.Errorf("unexpected pubsub topic: %s", cfg.PubSub.Topic)
	}
	if cfg.Idempotency.Header != "X-Idem-Key" || cfg.Idempotency.TTL != 48*time.Hour {
		t.Errorf("unexpected idempotency config: %+v", cfg.Idempotency)
	}
}

func TestLoadBaseURLOverride(t *testing.T) {
	env := baseEnv()
	env["PORTAL_SQUARE_BASE_URL"] = "http://127.0.0.1:9999/"

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Square.BaseURL != "http://127.0.0.1:9999" {
		t.Fatalf("expected trimmed override, got %s", cfg.Square.BaseURL)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "PORTAL_SERVER_PORT=7070\nexport PORTAL_FIREBASE_PROJECT_ID=cbg-dot\nPORTAL_SQUARE_ACCESS_TOKEN='dot-token'\nPORTAL_SQUARE_LOCATION_ID=LDOT\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Firebase.ProjectID != "cbg-dot" {
		t.Errorf("expected firebase project from dotenv, got %s", cfg.Firebase.ProjectID)
	}
	if cfg.Square.AccessToken != "dot-token" {
		t.Errorf("expected unquoted token, got %s", cfg.Square.AccessToken)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validation.Fields()
	want := map[string]bool{"Square.AccessToken": false, "Square.LocationID": false, "Firebase.ProjectID": false}
	for _, field := range fields {
		if _, ok := want[field]; ok {
			want[field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected %s in missing fields %v", field, fields)
		}
	}
}

func TestLoadRejectsUnknownBlobBackend(t *testing.T) {
	env := baseEnv()
	env["PORTAL_BLOB_BACKEND"] = "redis"

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := validation.Fields(); len(got) != 1 || got[0] != "Blob.Backend" {
		t.Fatalf("unexpected fields %v", got)
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := baseEnv()
	env["PORTAL_SQUARE_ACCESS_TOKEN"] = "secret://missing"

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected secret resolution error, got nil")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected secret ref %s", secretErr.Ref)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "PORTAL_FIREBASE_PROJECT_ID=dot-project\nPORTAL_SECRET_FALLBACK_FILE=.dot.local\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	t.Setenv("PORTAL_FIREBASE_PROJECT_ID", "os-project")
	t.Setenv("PORTAL_SECRET_PROJECT_IDS", "prod=project-prod")

	overrides := map[string]string{
		"PORTAL_FIREBASE_PROJECT_ID": "override-project",
	}

	values, err := EnvironmentValues(WithEnvFile(envPath), WithEnvMap(overrides))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}

	if got := values["PORTAL_FIREBASE_PROJECT_ID"]; got != "override-project" {
		t.Fatalf("expected override project, got %s", got)
	}
	if got := values["PORTAL_SECRET_FALLBACK_FILE"]; got != ".dot.local" {
		t.Fatalf("expected dotenv fallback file, got %s", got)
	}
	if got := values["PORTAL_SECRET_PROJECT_IDS"]; got != "prod=project-prod" {
		t.Fatalf("expected system env project map, got %s", got)
	}
}

func TestLoadMissingRequiredSecretsPanic(t *testing.T) {
	env := baseEnv()
	env["PORTAL_SQUARE_ACCESS_TOKEN"] = "sm://square/token"

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref != "secret://square/token" {
			t.Fatalf("expected legacy scheme normalised, got %s", ref)
		}
		return "   ", nil
	})

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic when required secrets missing")
		}
		missing, ok := rec.(*MissingSecretsError)
		if !ok {
			t.Fatalf("expected MissingSecretsError panic, got %T", rec)
		}
		if len(missing.Names()) != 1 || missing.Names()[0] != "Square.AccessToken" {
			t.Fatalf("unexpected missing secrets %v", missing.Names())
		}
		if got := missing.RedactedNames(); len(got) != 1 || got[0] != redactSecretName("Square.AccessToken") {
			t.Fatalf("unexpected redacted names %v", got)
		}
	}()

	Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
		WithRequiredSecrets("Square.AccessToken"),
		WithPanicOnMissingSecrets(),
	)
}
