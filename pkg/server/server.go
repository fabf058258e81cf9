package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/techmatters/terraso-go/pkg/auth"
	"github.com/techmatters/terraso-go/pkg/config"
	"github.com/techmatters/terraso-go/pkg/export"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server/middleware"
	"github.com/techmatters/terraso-go/pkg/server/store"
	"github.com/techmatters/terraso-go/pkg/soil"
	"github.com/techmatters/terraso-go/pkg/soilid"
)

// Notifier sends the emails triggered by membership changes.
type Notifier interface {
	SendMembershipRequest(ctx context.Context, user *model.User, group *model.Group, managers []*model.User) error
	SendMembershipApproval(ctx context.Context, user *model.User, group *model.Group) error
	SendStoryMapInvites(ctx context.Context, inviter *model.User, storyMap *model.StoryMap, memberships []*model.Membership) error
	SendProjectInvite(ctx context.Context, inviter, user *model.User, project *model.Project, role model.ProjectRole) error
}

// FileStore keeps uploaded files in object storage.
type FileStore interface {
	UploadFile(ctx context.Context, ownerID string, r io.Reader, size int64, fileName, contentType string) (string, error)
	PathFromURL(u string) (string, bool)
	SignedURL(ctx context.Context, p string) (string, error)
	Delete(ctx context.Context, p string) error
}

// Pusher delivers websocket notifications.
type Pusher interface {
	NotifyUser(userID uuid.UUID, message interface{})
	ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error
}

// TilesetPublisher mirrors visualization data as Mapbox tilesets.
type TilesetPublisher interface {
	Publish(v *model.VisualizationConfig)
	Remove(tilesetID string)
	Refresh(ctx context.Context, v *model.VisualizationConfig) (bool, error)
}

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

type Server struct {
	Router *mux.Router
	DB     *gorm.DB
	Config *config.TerrasoConfig

	UsersStore       store.UsersStore
	MembershipsStore store.MembershipsStore
	GroupsStore      store.GroupsStore
	LandscapesStore  store.LandscapesStore
	ProjectsStore    store.ProjectsStore
	SitesStore       store.SitesStore
	SiteNotesStore   store.SiteNotesStore
	SoilDataStore    store.SoilDataStore
	SharedDataStore  store.SharedDataStore
	StoryMapsStore   store.StoryMapsStore
	ExportStore      store.ExportStore
	HealthStore      store.HealthStore

	JWT           *auth.JWTService
	JWTMiddleware *middleware.JWTAuthenticator
	Exchanger     *auth.Exchanger
	Accounts      *auth.AccountService
	Checker       *permission.Checker
	Soil          *soil.Service
	SoilID        *soilid.Service
	Exports       *export.Service
	ExportTokens  *export.TokenService

	DataEntryFiles FileStore
	ProfileImages  FileStore
	StoryMapMedia  FileStore
	Notifier       Notifier
	Hub            Pusher
	// Tilesets is nil when no Mapbox account is configured.
	Tilesets TilesetPublisher

	srv *http.Server
}

func NewServer(
	cfg *config.TerrasoConfig,
	db *gorm.DB,
	host string,
	port string,
) *Server {

	router := mux.NewRouter().UseEncodedPath()
	router.Use(middleware.Metrics)

	s := &Server{
		Router: router,
		DB:     db,
		Config: cfg,
	}
	s.srv = &http.Server{
		Handler:      s.Handler(),
		Addr:         host + ":" + port,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
	return s
}

// Handler wraps the router with panic recovery, CORS and access logging.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOriginValidator(s.Config.IsAllowedOrigin),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Client-Timestamp"}),
		handlers.AllowCredentials(),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(panicLogger{}),
		handlers.PrintRecoveryStack(false),
	)
	return handlers.LoggingHandler(os.Stdout, recovery(cors(s.Router)))
}

type panicLogger struct{}

func (panicLogger) Println(v ...interface{}) {
	logging.Component("server").Error().Interface("panic", v).Msg("recovered from panic")
}

// API is the subrouter every versioned endpoint hangs off.
func (s *Server) API() *mux.Router {
	return s.Router.PathPrefix("/api/v1").Subrouter()
}

func (s *Server) Start() error {
	logging.Info().Str("addr", s.srv.Addr).Msg("listening")
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
