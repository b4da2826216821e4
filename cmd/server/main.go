package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"warrant/internal/audit"
	"warrant/internal/did"
	"warrant/internal/platform/config"
	"warrant/internal/platform/database"
	"warrant/internal/platform/logger"
	"warrant/internal/platform/tracing"
	registrymodels "warrant/internal/registry/models"
	registryservice "warrant/internal/registry/service"
	registrystore "warrant/internal/registry/store"
	"warrant/internal/rbac/cache"
	"warrant/internal/rbac/metrics"
	rbacservice "warrant/internal/rbac/service"
	"warrant/internal/rbac/sign"
	"warrant/internal/rbac/store"
	"warrant/internal/rbac/tracer"
	"warrant/internal/rbac/verifier"
	"warrant/internal/token"
	"warrant/internal/transport/a2a"
	httptransport "warrant/internal/transport/http"
	id "warrant/pkg/domain"
)

const serviceVersion = "0.3.0"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level)
	slog.SetDefault(log)

	ctx := context.Background()

	log.Info("initializing warrant",
		"addr", cfg.Server.Addr,
		"agent_id", cfg.Agent.ID,
		"did", cfg.Agent.DID,
	)

	if cfg.Tracing.Enabled {
		shutdownTracing, err := tracing.Init("warrant", serviceVersion)
		if err != nil {
			log.Error("tracing init failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				log.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	// Storage. An empty database path keeps everything in memory, which is
	// what the tests and local demos use.
	var (
		registryStore    registrystore.Store
		credPersistence  store.Persistence
		roleCacheBacking cache.Store
	)
	if cfg.Database.Path != "" {
		db, err := database.Open(ctx, cfg.Database.Path)
		if err != nil {
			log.Error("database open failed", "path", cfg.Database.Path, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		registryStore = registrystore.NewSQLite(db)
		credPersistence = store.NewSQLite(db)
		roleCacheBacking = cache.NewSQLite(db)
	} else {
		log.Warn("no database path configured, state is in-memory only")
		registryStore = registrystore.NewInMemoryStore()
		credPersistence = store.NewInMemoryPersistence()
		roleCacheBacking = cache.NewInMemoryStore()
	}

	registry := registryservice.New(registryStore, registryservice.WithLogger(log))

	holderKey, generated, err := loadHolderKey(cfg.Agent.HolderKeyFile)
	if err != nil {
		log.Error("holder key load failed", "path", cfg.Agent.HolderKeyFile, "error", err)
		os.Exit(1)
	}
	if generated {
		log.Warn("no holder key file configured, generated an ephemeral key",
			"hint", "presentations will not verify across restarts")
	}
	verificationMethod := cfg.Agent.VerificationMethod
	if verificationMethod == "" {
		verificationMethod = cfg.Agent.DID + "#key-1"
	}

	credentials, err := store.New(ctx, credPersistence,
		store.WithLogger(log),
		store.WithHolderKey(holderKey, verificationMethod),
	)
	if err != nil {
		log.Error("credential store init failed", "error", err)
		os.Exit(1)
	}
	if cfg.RBAC.CredentialDirectory != "" {
		if err := importCredentialDir(ctx, credentials, cfg.RBAC.CredentialDirectory, log); err != nil {
			log.Error("credential import failed", "dir", cfg.RBAC.CredentialDirectory, "error", err)
			os.Exit(1)
		}
	}

	cacheOpts := []cache.Option{cache.WithLogger(log)}
	if cfg.RBAC.CacheTTL > 0 {
		cacheOpts = append(cacheOpts, cache.WithDefaultTTL(cfg.RBAC.CacheTTL))
	}
	roleCache := cache.New(roleCacheBacking, cacheOpts...)

	tokenOpts := []token.Option{}
	if cfg.Token.TTL > 0 {
		tokenOpts = append(tokenOpts, token.WithTTL(cfg.Token.TTL))
	}
	tokens, err := token.New(cfg.Token.SigningKey, cfg.Token.Issuer, cfg.Token.Audience, tokenOpts...)
	if err != nil {
		log.Error("token service init failed", "error", err)
		os.Exit(1)
	}

	verif := verifier.New(did.NewRegistryResolver(registry), verifier.WithLogger(log))

	clientOpts := []a2a.ClientOption{a2a.WithLogger(log)}
	if cfg.RBAC.OutboundRateLimit > 0 {
		clientOpts = append(clientOpts, a2a.WithRateLimit(rate.Limit(cfg.RBAC.OutboundRateLimit), cfg.RBAC.OutboundBurst))
	}
	peerClient := a2a.NewClient(registry, clientOpts...)
	responder := a2a.NewResponder(credentials, id.DID(cfg.Agent.DID), a2a.WithResponderLogger(log))

	auditSink := audit.NewMemorySink(0)
	auditTrail := audit.NewPublisher(auditSink, audit.WithLogger(log))

	var tr tracer.Tracer = tracer.NewNoop()
	if cfg.Tracing.Enabled {
		tr = tracer.NewOTel()
	}

	serviceOpts := []rbacservice.Option{
		rbacservice.WithLogger(log),
		rbacservice.WithTracer(tr),
		rbacservice.WithMetrics(metrics.New()),
		rbacservice.WithAudit(auditTrail),
	}
	if cfg.RBAC.RequestTimeout > 0 {
		serviceOpts = append(serviceOpts, rbacservice.WithRequestTimeout(cfg.RBAC.RequestTimeout))
	}
	auth := rbacservice.New(tokens, peerClient, verif, roleCache, serviceOpts...)

	// Publish our own card so peers can resolve this agent's endpoint and
	// verification key.
	if cfg.Agent.ServiceURL != "" {
		card := registrymodels.AgentCard{
			AgentID:    id.AgentID(cfg.Agent.ID),
			Name:       cfg.Agent.Name,
			ServiceURL: cfg.Agent.ServiceURL,
			DID:        id.DID(cfg.Agent.DID),
			PublicKey:  sign.EncodePublicKey(holderKey.Public().(ed25519.PublicKey)),
		}
		if err := registry.Register(ctx, card, ""); err != nil {
			log.Error("self registration failed", "error", err)
			os.Exit(1)
		}
	}

	handler := httptransport.NewHandler(auth, tokens, tokens, registry, credentials, roleCache, auditSink, auditTrail, log)
	router := httptransport.NewRouter(handler, responder.Handler(), log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// loadHolderKey reads a base64 raw-URL encoded Ed25519 key from the given
// file. Both the 32-byte seed and the 64-byte private key forms are accepted.
// An empty path yields a freshly generated key.
func loadHolderKey(path string) (ed25519.PrivateKey, bool, error) {
	if path == "" {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		return key, true, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, false, fmt.Errorf("holder key is not base64: %w", err)
	}
	switch len(decoded) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(decoded), false, nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(decoded), false, nil
	default:
		return nil, false, fmt.Errorf("holder key has unexpected length %d", len(decoded))
	}
}

// importCredentialDir loads every .json credential document from dir into the
// store. Files that fail to import abort startup so a misconfigured agent
// does not come up with half its roles.
func importCredentialDir(ctx context.Context, credentials *store.CredentialStore, dir string, log *slog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := credentials.ImportCredentialFile(ctx, path); err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		log.Info("credential imported", "file", entry.Name())
	}
	return nil
}
