// Command submitter is the metadata submission and publishing orchestrator's
// HTTP entry point: loads configuration, opens the application and
// observability databases, wires every service, and serves the v1 API
// until terminated.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CSCfi/metadata-submitter-go/api"
	"github.com/CSCfi/metadata-submitter-go/auth"
	"github.com/CSCfi/metadata-submitter-go/dbopen"
	"github.com/CSCfi/metadata-submitter-go/external"
	"github.com/CSCfi/metadata-submitter-go/idgen"
	"github.com/CSCfi/metadata-submitter-go/ingestpoll"
	"github.com/CSCfi/metadata-submitter-go/internal/config"
	"github.com/CSCfi/metadata-submitter-go/objectsvc"
	"github.com/CSCfi/metadata-submitter-go/observability"
	"github.com/CSCfi/metadata-submitter-go/project"
	"github.com/CSCfi/metadata-submitter-go/publish"
	"github.com/CSCfi/metadata-submitter-go/schemacatalog"
	"github.com/CSCfi/metadata-submitter-go/shield"
	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/submission"
	"github.com/CSCfi/metadata-submitter-go/workflow"
	"github.com/CSCfi/metadata-submitter-go/xmlproc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("submitter exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	obsDB, err := dbopen.Open(cfg.ObservabilityDBPath, dbopen.WithMkdirAll())
	if err != nil {
		return fmt.Errorf("observability db: %w", err)
	}
	defer obsDB.Close()
	if err := observability.Init(obsDB); err != nil {
		return fmt.Errorf("observability schema: %w", err)
	}

	auditLogger := observability.NewAuditLogger(obsDB, 1000)
	heartbeat := observability.NewHeartbeatWriter(obsDB, "submitter", 15*time.Second)
	heartbeat.Start(ctx)
	events := observability.NewEventLogger(obsDB)
	events.LogEvent(ctx, observability.BusinessEvent{
		EventType:   "process",
		ServiceName: "submitter",
		Action:      "start",
		Success:     true,
	})
	metricsStore := observability.NewMetricsManager(obsDB, 100, 5*time.Second)
	metricsStore.RecordSimple("submitter_boot_total", 1, "count")

	rateLimiter := shield.NewRateLimiter(obsDB)

	st, err := store.Open(ctx, cfg.PGDatabaseURL)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.DB.Close()

	catalog, err := schemacatalog.Load(cfg.SchemaDir)
	if err != nil {
		return fmt.Errorf("schema catalog: %w", err)
	}

	workflows, err := workflow.LoadDefault()
	if err != nil {
		return fmt.Errorf("workflow config: %w", err)
	}

	var projects project.Service
	switch cfg.Deployment {
	case config.DeploymentCSC:
		projects = project.NewCSCService(cfg.CSCLDAPURL, cfg.CSCLDAPBindDN, cfg.CSCLDAPPassword, cfg.CSCLDAPBaseDN)
	default:
		projects = project.NewNBISService()
	}

	healthRegistry := external.NewRegistry()

	doiBase := cfg.DataciteURL
	if doiBase == "" {
		doiBase = cfg.PIDURL
	}
	doiHTTP := external.NewClient(external.ClientConfig{BaseURL: doiBase, Name: "doi"})
	metaxHTTP := external.NewClient(external.ClientConfig{BaseURL: cfg.MetaxURL, Name: "metax"})
	remsHTTP := external.NewClient(external.ClientConfig{BaseURL: cfg.RemsURL, Name: "rems"})
	archiveHTTP := external.NewClient(external.ClientConfig{BaseURL: cfg.AdminURL, Name: "archive"})
	keystoneHTTP := external.NewClient(external.ClientConfig{BaseURL: cfg.KeystoneURL, Name: "keystone"})
	for _, c := range []*external.Client{doiHTTP, metaxHTTP, remsHTTP, archiveHTTP, keystoneHTTP} {
		healthRegistry.Register(c.Health())
	}

	doiClient := external.NewDOIClient(doiHTTP)
	catalogClient := external.NewCatalogClient(metaxHTTP)
	accessClient := external.NewAccessClient(remsHTTP)
	archiveClient := external.NewArchiveClient(archiveHTTP)
	keystoneClient := external.NewKeystoneClient(keystoneHTTP)

	s3Client, err := external.NewS3Client(ctx, external.S3Config{
		Endpoint: cfg.S3Endpoint,
		Bucket:   cfg.BPCenterID,
	})
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}
	if err := s3Client.HeadBucket(ctx); err != nil {
		slog.Warn("s3 bucket unreachable at startup", "error", err)
	}

	go healthRegistry.Start(ctx)

	processor := xmlproc.New(catalog, idgen.UUIDv4())
	objects := objectsvc.New(st, workflows)
	submissions := submission.New(st, workflows, idgen.UUIDv4())
	publisher := publish.New(st, workflows, submissions, doiClient, catalogClient, accessClient, archiveClient)
	publisher.BPCenterID = cfg.BPCenterID

	poller := ingestpoll.New(st, workflows, archiveClient, cfg.PollingInterval)
	go poller.Start(ctx)

	auditLogger.LogAsync(&observability.AuditEntry{
		ComponentName: "submitter",
		OperationType: "startup",
		Status:        "success",
	})

	discovery, err := discoverOIDC(ctx, cfg.OIDCIssuer)
	if err != nil {
		return fmt.Errorf("oidc discovery: %w", err)
	}

	metrics := api.NewMetrics()

	deps := api.Deps{
		Store:       st,
		Workflows:   workflows,
		Catalog:     catalog,
		Processor:   processor,
		Submissions: submissions,
		Objects:     objects,
		Publisher:   publisher,
		Projects:    projects,

		RateLimiter: rateLimiter,
		Metrics:     metrics,

		JWTSecret:      []byte(cfg.JWTSecret),
		APIKeyPepper:   []byte(cfg.JWTSecret),
		KeyIDGen:       idgen.Prefixed("key_", idgen.Default),
		AccessionGen:   idgen.UUIDv4(),
		CenterID:       cfg.BPCenterID,
		AllowUnsafe:    cfg.AllowUnsafe,
		AllowedOrigins: cfg.AllowedOrigins,
		AdminToken:     cfg.AdminToken,

		OIDC: &api.OIDCDeps{
			Config: auth.OIDCConfig{
				ClientID:     cfg.OIDCClientID,
				ClientSecret: cfg.OIDCClientSecret,
				RedirectURL:  cfg.OIDCRedirectURL,
				AuthURL:      discovery.AuthorizationEndpoint,
				TokenURL:     discovery.TokenEndpoint,
				UserInfoURL:  discovery.UserinfoEndpoint,
			},
			UserInfoURL:  discovery.UserinfoEndpoint,
			SecureCookie: cfg.OIDCSecureCookie,
			SessionTTL:   int64(cfg.SessionTTL.Seconds()),
			RequireDPoP:  cfg.Deployment == config.DeploymentCSC,
			ReplayCache:  auth.NewReplayCache(cfg.DPoPReplayCacheSize),
		},

		Health:   healthRegistry,
		Keystone: keystoneClient,
	}

	handler := api.New(deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

// oidcDiscovery is the subset of a provider's
// /.well-known/openid-configuration document this service needs.
type oidcDiscovery struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// discoverOIDC fetches and parses the provider's discovery document once
// at startup, so every /aai and /callback request reuses the resolved
// endpoints rather than re-discovering them per request.
func discoverOIDC(ctx context.Context, issuer string) (*oidcDiscovery, error) {
	url := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	var d oidcDiscovery
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return &d, nil
}
