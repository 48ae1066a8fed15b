package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cbg-gallery/portal/internal/catalog"
	"github.com/cbg-gallery/portal/internal/handlers"
	"github.com/cbg-gallery/portal/internal/platform/auth"
	"github.com/cbg-gallery/portal/internal/platform/config"
	pfirestore "github.com/cbg-gallery/portal/internal/platform/firestore"
	"github.com/cbg-gallery/portal/internal/platform/idempotency"
	"github.com/cbg-gallery/portal/internal/platform/jobs"
	"github.com/cbg-gallery/portal/internal/platform/observability"
	"github.com/cbg-gallery/portal/internal/platform/secrets"
	platformstorage "github.com/cbg-gallery/portal/internal/platform/storage"
	"github.com/cbg-gallery/portal/internal/repositories"
	firestoreRepo "github.com/cbg-gallery/portal/internal/repositories/firestore"
	"github.com/cbg-gallery/portal/internal/square"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("portal")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	version, environment := buildInfoFromEnv(envValues, cfg)
	useFirestore := cfg.Blob.Backend != config.BlobBackendMemory

	var (
		firestoreProvider *pfirestore.Provider
		firestoreClient   *firestore.Client
	)
	if useFirestore {
		firestoreProvider = pfirestore.NewProvider(cfg.Firestore)
		firestoreClient, err = firestoreProvider.Client(ctx)
		if err != nil {
			logger.Fatal("failed to initialise firestore client", zap.Error(err))
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := firestoreProvider.Close(closeCtx); err != nil {
				logger.Warn("firestore close error", zap.Error(err))
			}
		}()
	}

	blobs, closeBlobs, err := newBlobRepository(ctx, cfg, firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise archive blob store", zap.Error(err), zap.String("backend", cfg.Blob.Backend))
	}
	defer closeBlobs()

	squareClient, err := square.NewClient(cfg.Square, square.WithLogger(logger.Named("square")))
	if err != nil {
		logger.Fatal("failed to initialise square client", zap.Error(err))
	}

	var archiveEvents catalog.ArchiveEventPublisher
	if topicName := strings.TrimSpace(cfg.PubSub.Topic); topicName != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		topic := pubsubClient.Topic(topicName)
		defer func() {
			topic.Stop()
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		publisher, err := jobs.NewPubSubArchivePublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise archive publisher", zap.Error(err))
		}
		archiveEvents = publisher
	}

	inventoryService, err := catalog.NewService(catalog.ServiceDeps{
		Store:                    squareClient,
		Blobs:                    blobs,
		Events:                   archiveEvents,
		Currency:                 cfg.Square.Currency,
		LocationID:               cfg.Square.LocationID,
		NamespacedSKU:            cfg.Sync.NamespacedSKU,
		ResolveReportingOnUpdate: cfg.Sync.ResolveReportingOnUpdate,
		CountConcurrency:         cfg.Sync.CountConcurrency,
		Clock:                    time.Now,
		IDGenerator: func() string {
			return ulid.Make().String()
		},
		Logger: observability.EventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise inventory service", zap.Error(err))
	}

	var idempotencyStore idempotency.Store
	if firestoreProvider != nil {
		idempotencyStore = idempotency.NewFirestoreStore(firestoreProvider)
	} else {
		idempotencyStore = idempotency.NewMemoryStore()
	}
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	healthRepo, err := newHealthRepository(firestoreClient, fetcher, squareClient)
	healthOpts := []handlers.HealthOption{
		handlers.WithHealthBuildInfo(version, environment, startedAt),
	}
	if err != nil {
		logger.Warn("health: dependency checks unavailable", zap.Error(err))
	} else {
		healthOpts = append(healthOpts, handlers.WithHealthRepository(healthRepo))
	}
	healthHandlers := handlers.NewHealthHandlers(healthOpts...)

	inventoryHandlers := handlers.NewInventoryHandlers(inventoryService,
		handlers.WithBatchRateLimit(cfg.Server.BatchRatePerMinute),
	)
	archiveHandlers := handlers.NewArchiveHandlers(inventoryService)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMemberMiddlewares(authenticator.RequireMember(), idempotencyMiddleware),
		handlers.WithInventoryRoutes(inventoryHandlers.Routes),
		handlers.WithArchiveRoutes(archiveHandlers.Routes),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("gallery portal listening",
			zap.String("environment", environment),
			zap.String("blobBackend", cfg.Blob.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newBlobRepository(ctx context.Context, cfg config.Config, provider *pfirestore.Provider) (repositories.BlobRepository, func(), error) {
	noop := func() {}
	switch cfg.Blob.Backend {
	case config.BlobBackendFirestore:
		repo, err := firestoreRepo.NewBlobRepository(provider, firestoreRepo.WithBlobCollection(cfg.Blob.Collection))
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil
	case config.BlobBackendGCS:
		client, err := cloudstorage.NewClient(ctx)
		if err != nil {
			return nil, noop, err
		}
		closeClient := func() {
			_ = client.Close()
		}
		objects, err := platformstorage.NewGCSObjects(client)
		if err != nil {
			closeClient()
			return nil, noop, err
		}
		store, err := platformstorage.NewBlobStore(objects, cfg.Blob.Bucket,
			platformstorage.WithPrefix(cfg.Blob.Prefix),
			platformstorage.WithHistory(),
		)
		if err != nil {
			closeClient()
			return nil, noop, err
		}
		return store, closeClient, nil
	case config.BlobBackendMemory:
		return repositories.NewMemoryBlobRepository(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported blob backend %q", cfg.Blob.Backend)
	}
}

func newHealthRepository(client *firestore.Client, fetcher *secrets.Fetcher, store *square.Client) (repositories.HealthRepository, error) {
	checks := make([]repositories.DependencyCheck, 0, 3)
	if client != nil {
		c := client
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	if store != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "square",
			Timeout: 3 * time.Second,
			Check: func(ctx context.Context) error {
				_, err := store.ListCategories(ctx, "")
				return err
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	return repositories.NewDependencyHealthRepository(checks)
}

func buildInfoFromEnv(env map[string]string, cfg config.Config) (string, string) {
	version := strings.TrimSpace(env["PORTAL_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return version, environment
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	envLabel := strings.ToLower(lookup("PORTAL_SECURITY_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	defaultProject := lookup("PORTAL_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("PORTAL_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("PORTAL_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if projectMap := parseKeyValueList(lookup("PORTAL_SECRET_PROJECT_IDS"), strings.ToLower); len(projectMap) > 0 {
		opts = append(opts, secrets.WithProjectMap(projectMap))
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if pins := secretVersionPins(lookup("PORTAL_SECRET_VERSION_PINS")); len(pins) > 0 {
		opts = append(opts, secrets.WithVersionPins(pins))
	}
	if credentialsFile := lookup("PORTAL_FIREBASE_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists config fields that must resolve from a secret reference. Extra names
// can be appended through PORTAL_REQUIRED_SECRETS.
func requiredSecretNames(env map[string]string) []string {
	names := []string{"Square.AccessToken"}
	if env != nil {
		for _, name := range strings.Split(env["PORTAL_REQUIRED_SECRETS"], ",") {
			names = append(names, name)
		}
	}
	return uniqueStrings(names)
}

// secretVersionPins parses "ref=version" pairs; refs may carry an env label prefix ("prod:name")
// and the sm:// shorthand.
func secretVersionPins(raw string) map[string]string {
	pins := make(map[string]string)
	for ref, version := range parseKeyValueList(raw, nil) {
		var prefix string
		if idx := strings.Index(ref, ":"); idx > 0 {
			schemeSplit := strings.Index(ref, "://")
			if schemeSplit == -1 || idx < schemeSplit {
				prefix = strings.ToLower(strings.TrimSpace(ref[:idx])) + ":"
				ref = strings.TrimSpace(ref[idx+1:])
			}
		}
		if strings.HasPrefix(ref, "sm://") {
			ref = "secret://" + strings.TrimPrefix(ref, "sm://")
		} else if !strings.HasPrefix(ref, "secret://") {
			ref = "secret://" + ref
		}
		pins[prefix+ref] = version
	}
	return pins
}

func parseKeyValueList(raw string, normalizeKey func(string) string) map[string]string {
	result := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return result
	}
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if normalizeKey != nil {
			key = normalizeKey(key)
		}
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	return result
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
