package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/CSCfi/metadata-submitter-go/auth"
	"github.com/CSCfi/metadata-submitter-go/external"
	"github.com/CSCfi/metadata-submitter-go/idgen"
	"github.com/CSCfi/metadata-submitter-go/objectsvc"
	"github.com/CSCfi/metadata-submitter-go/project"
	"github.com/CSCfi/metadata-submitter-go/publish"
	"github.com/CSCfi/metadata-submitter-go/schemacatalog"
	"github.com/CSCfi/metadata-submitter-go/shield"
	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/submission"
	"github.com/CSCfi/metadata-submitter-go/workflow"
	"github.com/CSCfi/metadata-submitter-go/xmlproc"
)

// OIDCDeps bundles the fields oidc.go needs to drive the login/callback
// flow; kept separate from Deps so a deployment without OIDC configured
// (tests, local dev) can leave it nil.
type OIDCDeps struct {
	Config       auth.OIDCConfig
	UserInfoURL  string
	SecureCookie bool
	CookieDomain string
	SessionTTL   int64 // seconds
	RequireDPoP  bool
	ReplayCache  *auth.ReplayCache
}

// Deps is every dependency the router wires into handlers. All fields are
// required unless noted.
type Deps struct {
	Store       *store.Store
	Workflows   *workflow.Config
	Catalog     *schemacatalog.Catalog
	Processor   *xmlproc.Processor
	Submissions *submission.Service
	Objects     *objectsvc.Service
	Publisher   *publish.Service
	Projects    project.Service

	RateLimiter *shield.RateLimiter // optional
	Metrics     *Metrics            // optional

	JWTSecret      []byte
	APIKeyPepper   []byte
	KeyIDGen       func() string
	AccessionGen   idgen.Generator // mints accessions for single-object POST /objects/{schema}
	CenterID       string
	AllowUnsafe    bool
	AllowedOrigins []string
	AdminToken     string // expected bearer value of X-Authorization on /ingest

	OIDC *OIDCDeps // optional; nil disables /aai, /callback, /logout

	Health *external.Registry // optional; powers GET /health

	Keystone *external.KeystoneClient // optional; powers GET /projects/{id}/credentials
}

// New builds the chi router implementing every v1 HTTP endpoint, wired per
// the middleware chain: correlation id / security headers / body limit /
// rate limit (shield.DefaultStack), then CORS, then metrics, then the
// soft session-JWT parser, leaving RequireAuth and project-scope checks to
// individual route groups below.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	for _, mw := range shield.DefaultStack(d.RateLimiter) {
		r.Use(mw)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "X-Authorization", "DPoP"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Get("/metrics", d.Metrics.Handler().ServeHTTP)
	}

	r.Use(auth.Middleware(d.JWTSecret))
	r.Use(bearerAPIKeyMiddleware(d.Store, d.APIKeyPepper))

	r.Get("/v1/health", healthHandler(d.Health))

	if d.OIDC != nil {
		h := &oidcHandlers{deps: d}
		r.Get("/v1/aai", h.login)
		r.Get("/v1/callback", h.callback)
	}
	r.Get("/v1/logout", logoutHandler(d.OIDC))

	r.Get("/v1/schemas", schemasHandler(d.Catalog))
	r.Get("/v1/schemas/{name}", schemaHandler(d.Catalog))

	// /ingest is triggered by a trusted admin actor presenting
	// X-Authorization: Bearer <admin>, a separate credential from the
	// researcher-facing session/API-key principal, so it is gated by
	// requireAdminIngest alone rather than the RequireAuth group below.
	r.Post("/v1/submissions/{submissionID}/ingest",
		requireAdminIngest(d.AdminToken, (&submissionHandlers{deps: d}).ingest))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		keys := &apiKeyHandlers{deps: d}
		r.Get("/v1/users/current", keys.currentUser)
		r.Post("/v1/users/current/keys", keys.mint)
		r.Get("/v1/users/current/keys", keys.list)
		r.Delete("/v1/users/current/keys/{id}", keys.revoke)

		subs := &submissionHandlers{deps: d}
		r.Route("/v1/workflows/{wf}/projects/{projectID}/submissions", func(r chi.Router) {
			r.Use(requireProjectScope(d.Projects, "projectID"))
			r.Post("/", subs.create)
		})

		if d.Keystone != nil {
			r.Route("/v1/projects/{projectID}", func(r chi.Router) {
				r.Use(requireProjectScope(d.Projects, "projectID"))
				r.Get("/credentials", (&credentialsHandlers{deps: d}).issue)
			})
		}

		r.Route("/v1/submissions", func(r chi.Router) {
			r.With(requireProjectScopeQuery(d.Projects, "projectId")).Get("/", subs.list)

			r.Route("/{submissionID}", func(r chi.Router) {
				r.Use(requireSubmissionScope(d.Projects, d.Store))

				r.Get("/", subs.get)
				r.Patch("/", subs.patch)
				r.Delete("/", subs.delete)

				objs := &objectHandlers{deps: d}
				r.Get("/objects", objs.listForSubmission)
				r.Get("/objects/docs", objs.listForSubmission)

				files := &fileHandlers{deps: d}
				r.Patch("/files", files.patch)

				r.Get("/registrations", (&publishHandlers{deps: d}).registrations)
			})
		})

		pub := &publishHandlers{deps: d}
		r.With(requireSubmissionScope(d.Projects, d.Store)).Post("/v1/publish/{submissionID}", pub.publish)
		r.With(requireSubmissionScope(d.Projects, d.Store)).Patch("/v1/announce/{submissionID}", pub.announce)

		objs := &objectHandlers{deps: d}
		r.With(requireSubmissionScopeQuery(d.Projects, d.Store, "submission")).Post("/v1/objects/{schema}", objs.create)
		r.Route("/v1/objects/{schema}/{id}", func(r chi.Router) {
			r.Use(requireObjectScope(d.Projects, d.Store))
			r.Get("/", objs.get)
			r.Put("/", objs.replace)
			r.Delete("/", objs.delete)
		})

		files := &fileHandlers{deps: d}
		r.With(requireProjectScopeQuery(d.Projects, "projectId")).Post("/v1/files", files.register)
		r.With(requireProjectScopeQuery(d.Projects, "projectId")).Get("/v1/files", files.list)
	})

	return r
}
