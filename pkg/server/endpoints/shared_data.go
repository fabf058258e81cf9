package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/collaboration"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/mapbox"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/store"
	"github.com/techmatters/terraso-go/pkg/storage"
	"github.com/techmatters/terraso-go/pkg/validation"
)

var dataEntryExtensions = map[string]bool{
	"csv": true, "doc": true, "docx": true, "pdf": true, "ppt": true, "pptx": true,
	"xls": true, "xlsx": true, "geojson": true, "gpx": true, "json": true,
	"kml": true, "kmz": true, "zip": true,
}

var errBadTarget = errors.New("target type must be group or landscape")

// targetFinder resolves the group or landscape a resource is shared with.
type targetFinder struct {
	groups     store.GroupsStore
	landscapes store.LandscapesStore
}

type sharedTarget struct {
	Type string
	ID   uuid.UUID
	List *model.MembershipList
}

func (f targetFinder) find(ctx context.Context, targetType, slug string) (*sharedTarget, error) {
	switch targetType {
	case model.TargetGroup:
		g, err := f.groups.FindGroup(ctx, slug)
		if err != nil {
			return nil, err
		}
		return &sharedTarget{Type: targetType, ID: g.ID, List: g.MembershipList}, nil
	case model.TargetLandscape:
		l, err := f.landscapes.FindLandscape(ctx, slug)
		if err != nil {
			return nil, err
		}
		return &sharedTarget{Type: targetType, ID: l.ID, List: l.MembershipList}, nil
	}
	return nil, errBadTarget
}

type targetRef struct {
	TargetType string `json:"targetType" validate:"required,oneof=group landscape"`
	TargetSlug string `json:"targetSlug" validate:"required"`
}

type linkEntryInput struct {
	Name         string      `json:"name" validate:"required,max=128"`
	Description  string      `json:"description"`
	URL          string      `json:"url" validate:"required,url"`
	ResourceType string      `json:"resourceType" validate:"max=255"`
	Targets      []targetRef `json:"targets" validate:"required,min=1,dive"`
}

type dataEntryUpdate struct {
	Name        *string `json:"name" validate:"omitempty,max=128"`
	Description *string `json:"description"`
	URL         *string `json:"url" validate:"omitempty,url"`
}

// dataEntryView adds a short lived download URL to file entries.
type dataEntryView struct {
	*model.DataEntry
	SignedURL string `json:"signedUrl,omitempty"`
}

type visualizationInput struct {
	Title         string          `json:"title" validate:"required,max=128"`
	Description   string          `json:"description"`
	Configuration json.RawMessage `json:"configuration"`
	DataEntryID   uuid.UUID       `json:"dataEntryId" validate:"required"`
	OwnerType     string          `json:"ownerType" validate:"required,oneof=group landscape"`
	OwnerSlug     string          `json:"ownerSlug" validate:"required"`
}

type visualizationUpdate struct {
	Title               *string         `json:"title" validate:"omitempty,max=128"`
	Description         *string         `json:"description"`
	Configuration       json.RawMessage `json:"configuration"`
	MapboxTilesetID     *string         `json:"mapboxTilesetId"`
	MapboxTilesetStatus *string         `json:"mapboxTilesetStatus" validate:"omitempty,oneof=pending ready"`
}

// RegisterSharedDataEndpoints registers data entries and visualization
// configs.
func RegisterSharedDataEndpoints(s *server.Server) {
	targets := targetFinder{groups: s.GroupsStore, landscapes: s.LandscapesStore}

	entries := s.API().PathPrefix("/data-entries").Subrouter()
	entries.Use(s.JWTMiddleware.Middleware)
	// GET /data-entries?targetType=group&targetSlug=... - Entries shared with a target
	entries.HandleFunc("", handleListDataEntries(s.SharedDataStore, targets)).Methods("GET")
	// POST /data-entries - Upload a file (multipart) or add a link (JSON)
	entries.HandleFunc("", handleCreateDataEntry(s.SharedDataStore, targets, s.DataEntryFiles, s.Config.DataEntryFileMaxSize)).Methods("POST")
	entries.HandleFunc("/{id}", handleGetDataEntry(s.SharedDataStore, s.DataEntryFiles)).Methods("GET")
	entries.HandleFunc("/{id}", handleUpdateDataEntry(s.SharedDataStore)).Methods("PUT")
	entries.HandleFunc("/{id}", handleDeleteDataEntry(s.SharedDataStore, s.DataEntryFiles)).Methods("DELETE")

	visualizations := s.API().PathPrefix("/visualization-configs").Subrouter()
	visualizations.Use(s.JWTMiddleware.Middleware)
	visualizations.HandleFunc("", handleListVisualizations(s.SharedDataStore, targets)).Methods("GET")
	visualizations.HandleFunc("", handleCreateVisualization(s.SharedDataStore, targets, s.Tilesets)).Methods("POST")
	visualizations.HandleFunc("/{id}", handleGetVisualization(s.SharedDataStore, s.Tilesets)).Methods("GET")
	visualizations.HandleFunc("/{id}", handleUpdateVisualization(s.SharedDataStore, s.Tilesets)).Methods("PUT")
	visualizations.HandleFunc("/{id}", handleDeleteVisualization(s.SharedDataStore, s.Tilesets)).Methods("DELETE")
}

func dataEntryResource(e *model.DataEntry) audit.Resource {
	return auditResource(e.ID, "data_entry", e.Name, nil)
}

// sharedFilter reads targetType and targetSlug from the query and checks
// the caller belongs to the target. It writes the error response and
// returns false when it can't.
func sharedFilter(w http.ResponseWriter, r *http.Request, targets targetFinder, modelName string) (store.SharedFilter, bool) {
	q := r.URL.Query()
	f := store.SharedFilter{}
	if rt := q.Get("resourceType"); rt != "" {
		f.ResourceTypes = strings.Split(rt, ",")
	}
	targetType, slug := q.Get("targetType"), q.Get("targetSlug")
	if targetType == "" && slug == "" {
		badRequest(w, "invalid_data", "targetType and targetSlug are required")
		return f, false
	}
	t, err := targets.find(r.Context(), targetType, slug)
	if errors.Is(err, errBadTarget) {
		badRequest(w, "invalid_data", err.Error())
		return f, false
	}
	if err != nil {
		respondWithServiceError(w, r, modelName, "view", err)
		return f, false
	}
	if !collaboration.IsApprovedMember(t.List, identity.User(r.Context())) {
		notAllowed(w, "view", modelName)
		return f, false
	}
	f.TargetType, f.TargetID = t.Type, &t.ID
	return f, true
}

func handleListDataEntries(shared store.SharedDataStore, targets targetFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := sharedFilter(w, r, targets, "DataEntry")
		if !ok {
			return
		}
		page, err := shared.ListDataEntries(r.Context(), f, listOptions(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, page)
	}
}

// resolveTargets loads every target and requires the caller to be an
// approved member of each.
func resolveTargets(ctx context.Context, targets targetFinder, user *model.User, refs []targetRef) ([]model.SharedResource, error) {
	out := make([]model.SharedResource, 0, len(refs))
	for _, ref := range refs {
		t, err := targets.find(ctx, ref.TargetType, ref.TargetSlug)
		if err != nil {
			return nil, err
		}
		if !collaboration.IsApprovedMember(t.List, user) {
			return nil, fmt.Errorf("%s %s: %w", ref.TargetType, ref.TargetSlug, errNotTargetMember)
		}
		out = append(out, model.SharedResource{
			TargetType:  t.Type,
			TargetID:    t.ID,
			ShareAccess: model.ShareAccessTargetMembers,
		})
	}
	return out, nil
}

var errNotTargetMember = errors.New("not a member of the target")

func handleCreateDataEntry(shared store.SharedDataStore, targets targetFinder, files server.FileStore, maxSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		var entry *model.DataEntry
		var refs []targetRef
		var fileURL string

		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(maxSize + 1<<20); err != nil {
				badRequest(w, "invalid_upload", err.Error())
				return
			}
			headers := r.MultipartForm.File["data_file"]
			sizes := make([]int64, len(headers))
			for i, h := range headers {
				sizes[i] = h.Size
			}
			if len(headers) == 0 {
				badRequest(w, "invalid_upload", "missing file field 'data_file'")
				return
			}
			if err := storage.CheckUpload(sizes, maxSize); err != nil {
				badRequest(w, "invalid_upload", err.Error())
				return
			}
			header := headers[0]
			ext := strings.TrimPrefix(strings.ToLower(path.Ext(header.Filename)), ".")
			if !dataEntryExtensions[ext] {
				badRequest(w, "invalid_extension", header.Filename)
				return
			}
			refs = []targetRef{{TargetType: r.FormValue("target_type"), TargetSlug: r.FormValue("target_slug")}}
			if err := validation.Validate(&refs[0]); err != nil {
				invalidData(w, "DataEntry", err)
				return
			}
			name := r.FormValue("name")
			if name == "" {
				name = strings.TrimSuffix(header.Filename, path.Ext(header.Filename))
			}
			size := header.Size
			entry = &model.DataEntry{
				Name:         name,
				Description:  r.FormValue("description"),
				EntryType:    model.EntryTypeFile,
				ResourceType: ext,
				Size:         &size,
			}
			if err := validation.Validate(entry); err != nil {
				invalidData(w, "DataEntry", err)
				return
			}
			shares, err := resolveTargets(ctx, targets, user, refs)
			if !sharesResolved(w, r, err) {
				return
			}
			entry.SharedResources = shares

			file, err := header.Open()
			if err != nil {
				badRequest(w, "invalid_upload", err.Error())
				return
			}
			defer file.Close()
			fileURL, err = files.UploadFile(ctx, user.ID.String(), file, header.Size, header.Filename, header.Header.Get("Content-Type"))
			if err != nil {
				internalError(w, r, err)
				return
			}
			entry.URL = fileURL
		} else {
			var in linkEntryInput
			if err := decodeJSON(r, &in); err != nil {
				invalidData(w, "DataEntry", err)
				return
			}
			entry = &model.DataEntry{
				Name:         in.Name,
				Description:  in.Description,
				EntryType:    model.EntryTypeLink,
				ResourceType: in.ResourceType,
				URL:          in.URL,
			}
			if entry.ResourceType == "" {
				entry.ResourceType = string(model.EntryTypeLink)
			}
			shares, err := resolveTargets(ctx, targets, user, in.Targets)
			if !sharesResolved(w, r, err) {
				return
			}
			entry.SharedResources = shares
		}

		entry.CreatedByID, entry.CreatedBy = &user.ID, user
		if err := shared.CreateDataEntry(ctx, entry); err != nil {
			if fileURL != "" {
				removeEntryFile(ctx, files, fileURL)
			}
			respondWithServiceError(w, r, "DataEntry", "create", err)
			return
		}
		logAudit(r, audit.CreateEvent(user, dataEntryResource(entry), audit.Metadata{"entry_type": string(entry.EntryType)}))
		respondWithJSON(w, http.StatusCreated, entry)
	}
}

func sharesResolved(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, errBadTarget):
		badRequest(w, "invalid_data", err.Error())
	case errors.Is(err, errNotTargetMember):
		notAllowed(w, "create", "DataEntry")
	default:
		respondWithServiceError(w, r, "DataEntry", "create", err)
	}
	return false
}

func removeEntryFile(ctx context.Context, files server.FileStore, fileURL string) {
	p, ok := files.PathFromURL(fileURL)
	if !ok {
		return
	}
	if err := files.Delete(ctx, p); err != nil {
		logging.Component("shared_data").Warn().Err(err).Str("path", p).Msg("failed to delete data entry file")
	}
}

func loadDataEntry(w http.ResponseWriter, r *http.Request, shared store.SharedDataStore, action string) (*model.DataEntry, []permission.SharedTarget) {
	id, err := pathID(r, "id")
	if err != nil {
		notFound(w, "DataEntry")
		return nil, nil
	}
	entry, err := shared.FindDataEntry(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, "DataEntry", action, err)
		return nil, nil
	}
	targets, err := shared.SharedTargets(r.Context(), entry.ID)
	if err != nil {
		internalError(w, r, err)
		return nil, nil
	}
	return entry, targets
}

func handleGetDataEntry(shared store.SharedDataStore, files server.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		entry, targets := loadDataEntry(w, r, shared, "view")
		if entry == nil {
			return
		}
		if !permission.CanViewDataEntry(user, entry, targets) {
			notAllowed(w, "view", "DataEntry")
			return
		}
		view := dataEntryView{DataEntry: entry}
		if entry.EntryType == model.EntryTypeFile {
			if p, ok := files.PathFromURL(entry.URL); ok {
				signed, err := files.SignedURL(r.Context(), p)
				if err != nil {
					internalError(w, r, err)
					return
				}
				view.SignedURL = signed
			}
		}
		logAudit(r, audit.ReadEvent(user, dataEntryResource(entry), nil))
		respondWithJSON(w, http.StatusOK, view)
	}
}

func handleUpdateDataEntry(shared store.SharedDataStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		entry, _ := loadDataEntry(w, r, shared, "change")
		if entry == nil {
			return
		}
		if !permission.CanChangeDataEntry(user, entry) {
			notAllowed(w, "change", "DataEntry")
			return
		}
		var in dataEntryUpdate
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "DataEntry", err)
			return
		}
		setIfPresent(&entry.Name, in.Name)
		setIfPresent(&entry.Description, in.Description)
		if in.URL != nil {
			if entry.EntryType != model.EntryTypeLink {
				badRequest(w, "invalid_data", "only link entries have an editable url")
				return
			}
			if _, err := url.ParseRequestURI(*in.URL); err != nil {
				badRequest(w, "invalid_data", err.Error())
				return
			}
			entry.URL = *in.URL
		}
		if err := validation.Validate(entry); err != nil {
			invalidData(w, "DataEntry", err)
			return
		}
		if err := shared.UpdateDataEntry(r.Context(), entry); err != nil {
			respondWithServiceError(w, r, "DataEntry", "change", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, dataEntryResource(entry), nil))
		respondWithJSON(w, http.StatusOK, entry)
	}
}

func handleDeleteDataEntry(shared store.SharedDataStore, files server.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		entry, targets := loadDataEntry(w, r, shared, "delete")
		if entry == nil {
			return
		}
		if !permission.CanDeleteDataEntry(user, entry, targets) {
			notAllowed(w, "delete", "DataEntry")
			return
		}
		if err := shared.DeleteDataEntry(r.Context(), entry); err != nil {
			internalError(w, r, err)
			return
		}
		if entry.EntryType == model.EntryTypeFile {
			removeEntryFile(r.Context(), files, entry.URL)
		}
		logAudit(r, audit.DeleteEvent(user, dataEntryResource(entry), nil))
		respondWithJSON(w, http.StatusOK, entry)
	}
}

func visualizationResource(v *model.VisualizationConfig) audit.Resource {
	return auditResource(v.ID, "visualization_config", v.Title, nil)
}

func handleListVisualizations(shared store.SharedDataStore, targets targetFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := sharedFilter(w, r, targets, "VisualizationConfig")
		if !ok {
			return
		}
		page, err := shared.ListVisualizationConfigs(r.Context(), f, listOptions(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, page)
	}
}

func handleCreateVisualization(shared store.SharedDataStore, targets targetFinder, tilesets server.TilesetPublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		var in visualizationInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "VisualizationConfig", err)
			return
		}
		entry, err := shared.FindDataEntry(ctx, in.DataEntryID)
		if err != nil {
			respondWithServiceError(w, r, "DataEntry", "create", err)
			return
		}
		entryTargets, err := shared.SharedTargets(ctx, entry.ID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if !permission.CanViewDataEntry(user, entry, entryTargets) {
			notAllowed(w, "create", "VisualizationConfig")
			return
		}
		owner, err := targets.find(ctx, in.OwnerType, in.OwnerSlug)
		if err != nil {
			respondWithServiceError(w, r, "VisualizationConfig", "create", err)
			return
		}
		if !collaboration.IsApprovedMember(owner.List, user) {
			notAllowed(w, "create", "VisualizationConfig")
			return
		}
		v := &model.VisualizationConfig{
			Title:       in.Title,
			Description: in.Description,
			DataEntryID: entry.ID,
			OwnerType:   owner.Type,
			OwnerID:     &owner.ID,
			CreatedByID: &user.ID,
		}
		if len(in.Configuration) > 0 {
			v.Configuration = model.JSON(in.Configuration)
		}
		if err := shared.CreateVisualizationConfig(ctx, v); err != nil {
			respondWithServiceError(w, r, "VisualizationConfig", "create", err)
			return
		}
		v.DataEntry = entry
		if tilesets != nil {
			tilesets.Publish(v)
		}
		logAudit(r, audit.CreateEvent(user, visualizationResource(v), nil))
		respondWithJSON(w, http.StatusCreated, v)
	}
}

func loadVisualization(w http.ResponseWriter, r *http.Request, shared store.SharedDataStore, action string) (*model.VisualizationConfig, []permission.SharedTarget) {
	id, err := pathID(r, "id")
	if err != nil {
		notFound(w, "VisualizationConfig")
		return nil, nil
	}
	v, err := shared.FindVisualizationConfig(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, "VisualizationConfig", action, err)
		return nil, nil
	}
	targets, err := shared.SharedTargets(r.Context(), v.DataEntryID)
	if err != nil {
		internalError(w, r, err)
		return nil, nil
	}
	return v, targets
}

func handleGetVisualization(shared store.SharedDataStore, tilesets server.TilesetPublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		v, targets := loadVisualization(w, r, shared, "view")
		if v == nil {
			return
		}
		if !permission.CanViewVisualization(user, v, targets) {
			notAllowed(w, "view", "VisualizationConfig")
			return
		}
		if tilesets != nil && v.MapboxTilesetID != nil && v.MapboxTilesetStatus != mapbox.StatusReady {
			if _, err := tilesets.Refresh(r.Context(), v); err != nil {
				logging.Component("mapbox").Warn().Err(err).Str("visualization_id", v.ID.String()).Msg("failed to check tileset status")
			}
		}
		respondWithJSON(w, http.StatusOK, v)
	}
}

func handleUpdateVisualization(shared store.SharedDataStore, tilesets server.TilesetPublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		v, _ := loadVisualization(w, r, shared, "change")
		if v == nil {
			return
		}
		if !permission.CanChangeVisualization(user, v) {
			notAllowed(w, "change", "VisualizationConfig")
			return
		}
		var in visualizationUpdate
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "VisualizationConfig", err)
			return
		}
		setIfPresent(&v.Title, in.Title)
		setIfPresent(&v.Description, in.Description)
		setIfPresent(&v.MapboxTilesetStatus, in.MapboxTilesetStatus)
		if in.MapboxTilesetID != nil {
			v.MapboxTilesetID = in.MapboxTilesetID
		}
		if len(in.Configuration) > 0 {
			v.Configuration = model.JSON(in.Configuration)
		}
		if err := validation.Validate(v); err != nil {
			invalidData(w, "VisualizationConfig", err)
			return
		}
		if err := shared.UpdateVisualizationConfig(r.Context(), v); err != nil {
			respondWithServiceError(w, r, "VisualizationConfig", "change", err)
			return
		}
		if tilesets != nil && (len(in.Configuration) > 0 || in.Title != nil) && in.MapboxTilesetID == nil {
			tilesets.Publish(v)
		}
		logAudit(r, audit.ChangeEvent(user, visualizationResource(v), nil))
		respondWithJSON(w, http.StatusOK, v)
	}
}

func handleDeleteVisualization(shared store.SharedDataStore, tilesets server.TilesetPublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		v, targets := loadVisualization(w, r, shared, "delete")
		if v == nil {
			return
		}
		if !permission.CanDeleteVisualization(user, v, targets) {
			notAllowed(w, "delete", "VisualizationConfig")
			return
		}
		if err := shared.DeleteVisualizationConfig(r.Context(), v); err != nil {
			internalError(w, r, err)
			return
		}
		if tilesets != nil && v.MapboxTilesetID != nil {
			tilesets.Remove(*v.MapboxTilesetID)
		}
		logAudit(r, audit.DeleteEvent(user, visualizationResource(v), nil))
		respondWithJSON(w, http.StatusOK, v)
	}
}
