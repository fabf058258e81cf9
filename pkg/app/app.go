// Package app assembles a Terraso server from its configuration and database.
package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gorm.io/gorm"

	"github.com/techmatters/terraso-go/pkg/auth"
	"github.com/techmatters/terraso-go/pkg/config"
	"github.com/techmatters/terraso-go/pkg/export"
	"github.com/techmatters/terraso-go/pkg/mapbox"
	"github.com/techmatters/terraso-go/pkg/notifications"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/middleware"
	gormstore "github.com/techmatters/terraso-go/pkg/server/store/gorm"
	"github.com/techmatters/terraso-go/pkg/soil"
	"github.com/techmatters/terraso-go/pkg/soilid"
	"github.com/techmatters/terraso-go/pkg/storage"
)

// Build wires the gorm stores, S3 uploads and services behind a server. The
// returned hub must be run for websocket pushes to be delivered.
func Build(ctx context.Context, cfg *config.TerrasoConfig, database *gorm.DB, host, port string) (*server.Server, *notifications.Hub, error) {
	s := server.NewServer(cfg, database, host, port)

	s.UsersStore = gormstore.NewUsersStore(database)
	s.MembershipsStore = gormstore.NewMembershipsStore(database)
	s.GroupsStore = gormstore.NewGroupsStore(database)
	s.LandscapesStore = gormstore.NewLandscapesStore(database)
	s.ProjectsStore = gormstore.NewProjectsStore(database)
	sites := gormstore.NewSitesStore(database)
	s.SitesStore = sites
	s.SiteNotesStore = sites
	s.SoilDataStore = gormstore.NewSoilDataStore(database)
	s.SharedDataStore = gormstore.NewSharedDataStore(database)
	s.StoryMapsStore = gormstore.NewStoryMapsStore(database)
	exports := gormstore.NewExportStore(database)
	s.ExportStore = exports
	s.HealthStore = gormstore.NewHealthStore(database)

	s.Checker = permission.NewChecker(nil)
	s.JWT = auth.NewJWTService(cfg)
	s.JWTMiddleware = middleware.NewJWTAuthenticator(s.JWT, s.UsersStore)
	s.Exchanger = auth.NewExchanger(auth.RegistryFromConfig(cfg.JWTExchangeProviders), &http.Client{Timeout: 10 * time.Second})

	s3Client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	profileImages := storage.NewProfileImageService(storage.NewS3Store(s3Client, cfg.ProfileImagesS3Bucket), cfg.ProfileImagesBaseURL(), cfg.ProfileImageURLTimeout())
	profileImages.SetMaxDownloadSize(cfg.DataEntryFileMaxSize)
	s.ProfileImages = profileImages
	dataEntryFiles := storage.NewUploadService(storage.NewS3Store(s3Client, cfg.DataEntryFileS3Bucket), cfg.DataEntryFileBaseURL())
	s.DataEntryFiles = dataEntryFiles
	s.StoryMapMedia = storage.NewUploadService(storage.NewS3Store(s3Client, cfg.StoryMapMediaS3Bucket), cfg.StoryMapMediaBaseURL())
	s.Accounts = auth.NewAccountService(s.UsersStore, profileImages)

	s.Soil = soil.NewService(s.SoilDataStore, s.Checker)
	s.SoilID = soilid.NewService(
		soilid.NewClient(soilid.ClientOptions{BaseURL: cfg.SoilIDServiceURL, Timeout: cfg.SoilIDTimeout(), RequestsPerSecond: 10, Burst: 20}),
		gormstore.NewSoilIDCacheStore(database),
	)
	if cfg.MapboxAccessToken != "" && cfg.MapboxUsername != "" {
		publisher := mapbox.NewPublisher(mapbox.NewClient(cfg.MapboxAPIURL, cfg.MapboxUsername, cfg.MapboxAccessToken), dataEntryFiles, s.SharedDataStore)
		if u, err := url.Parse(cfg.APIBaseURL); err == nil {
			publisher.Label = u.Hostname()
		}
		s.Tilesets = publisher
	}
	s.ExportTokens = export.NewTokenService(exports, exports, s.Checker)
	s.Exports = export.NewService(exports, s.ExportTokens, s.Checker)

	renderer, err := notifications.NewRenderer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	s.Notifier = notifications.NewEmailNotifier(notifications.NewSMTPMailer(cfg), renderer, s.JWT, cfg.WebClientURL)
	hub := notifications.NewHub(cfg.IsAllowedOrigin)
	s.Hub = hub

	return s, hub, nil
}
