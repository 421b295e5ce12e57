package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"goserveph/internal/forms"
	"goserveph/internal/metrics"
	"goserveph/internal/review"
	"goserveph/internal/storage"
	"goserveph/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

type Service struct {
	logger   *logrus.Logger
	config   *types.Config
	registry *forms.Registry
	intake   *forms.Intake
	workflow *review.Workflow
	files    storage.Storage

	cognitoClient CognitoAPI
	cookie        *securecookie.SecureCookie

	// nil leaves the staff routes open, used for local development
	jwksCache *jwk.Cache
	jwksURL   string

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	intake *forms.Intake,
	workflow *review.Workflow,
	files storage.Storage,
	cognitoClient CognitoAPI,
	jwkCache *jwk.Cache,
	jwksURL string,
) *Service {
	mux := flow.New()

	hashKey, _ := base64.StdEncoding.DecodeString(config.CookieHashKey)
	blockKey, _ := base64.StdEncoding.DecodeString(config.CookieBlockKey)

	s := &Service{
		logger:   logger,
		config:   config,
		registry: intake.Registry(),
		intake:   intake,
		workflow: workflow,
		files:    files,

		cognitoClient: cognitoClient,
		cookie:        securecookie.New(hashKey, blockKey),

		jwksCache: jwkCache,
		jwksURL:   jwksURL,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	if jwkCache == nil {
		logger.Warn("staff authentication disabled, review routes are open")
	}

	s.buildRouter(mux)

	return s
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", metrics.Handler(), http.MethodGet)

	r.HandleFunc("/api/permits", s.handleGetPermitTypes, http.MethodGet)
	r.HandleFunc("/api/permits/:permitType/schema", s.handleGetSchema, http.MethodGet)
	r.HandleFunc("/api/permits/:permitType/steps/:step/validate", s.handlePostValidateStep, http.MethodPost)
	r.HandleFunc("/api/permits/:permitType/applications", s.handlePostApplication, http.MethodPost)

	r.HandleFunc("/staff/login", s.handlePostStaffLogin, http.MethodPost)
	r.HandleFunc("/staff/logout", s.handlePostStaffLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireStaff)

		r.HandleFunc("/api/permits/:permitType/applications", s.handleListApplications, http.MethodGet)
		r.HandleFunc("/api/permits/:permitType/summary", s.handleGetSummary, http.MethodGet)

		r.HandleFunc("/api/applications/:id", s.handleGetApplication, http.MethodGet)
		r.HandleFunc("/api/applications/:id/events", s.handleGetApplicationEvents, http.MethodGet)
		r.HandleFunc("/api/applications/:id/officer", s.handlePostOfficer, http.MethodPost)
		r.HandleFunc("/api/applications/:id/status", s.handlePostStatus, http.MethodPost)
		r.HandleFunc("/api/applications/:id/toda", s.handlePostTODAOverride, http.MethodPost)

		if disk, ok := s.files.(*storage.DiskStorage); ok {
			r.Handle("/uploads/...", http.StripPrefix("/uploads", disk.Handler()), http.MethodGet)
		}
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) actorFromContext(ctx context.Context) string {
	if email, ok := ctx.Value(contextKeyEmail).(string); ok && email != "" {
		return email
	}
	userID, _ := ctx.Value(contextKeyUserID).(string)
	return userID
}

func (s *Service) permitType(w http.ResponseWriter, r *http.Request) (types.PermitType, bool) {
	pt, err := types.ParsePermitType(r.PathValue("permitType"))
	if err != nil {
		s.writeDomainError(w, err)
		return "", false
	}
	return pt, true
}
