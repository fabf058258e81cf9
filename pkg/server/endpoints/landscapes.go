package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/gis"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/store"
	"github.com/techmatters/terraso-go/pkg/validation"
)

type landscapeInput struct {
	Name                    *string     `json:"name"`
	Description             *string     `json:"description"`
	Website                 *string     `json:"website"`
	Location                *string     `json:"location"`
	Email                   *string     `json:"email"`
	AreaPolygon             *model.JSON `json:"areaPolygon"`
	Population              *int        `json:"population" validate:"omitempty,gte=0"`
	PartnershipStatus       *string     `json:"partnershipStatus" validate:"omitempty,oneof=no in-progress yes"`
	ProfileImage            *string     `json:"profileImage"`
	ProfileImageDescription *string     `json:"profileImageDescription"`
}

type centerCoordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// apply copies the set fields onto l. A new area polygon recomputes the
// area and the center.
func (in *landscapeInput) apply(l *model.Landscape) error {
	setIfPresent(&l.Name, in.Name)
	setIfPresent(&l.Description, in.Description)
	setIfPresent(&l.Website, in.Website)
	setIfPresent(&l.Location, in.Location)
	setIfPresent(&l.Email, in.Email)
	setIfPresent(&l.ProfileImage, in.ProfileImage)
	setIfPresent(&l.ProfileImageDescription, in.ProfileImageDescription)
	if in.Population != nil {
		l.Population = in.Population
	}
	if in.PartnershipStatus != nil {
		l.PartnershipStatus = model.PartnershipStatus(*in.PartnershipStatus)
	}
	if in.AreaPolygon == nil {
		return nil
	}
	l.AreaPolygon = *in.AreaPolygon
	if l.AreaPolygon.IsNull() {
		l.AreaScalarM2 = nil
		l.CenterCoordinates = nil
		return nil
	}
	area, err := gis.CalculateGeoJSONFeatureArea(l.AreaPolygon)
	if err != nil && !errors.Is(err, gis.ErrEmptyBoundary) {
		return err
	}
	l.AreaScalarM2 = &area
	center, err := gis.CalculateGeoJSONCentroid(l.AreaPolygon)
	if err != nil {
		l.CenterCoordinates = nil
		return nil
	}
	raw, _ := json.Marshal(centerCoordinates{Lat: center.Lat(), Lng: center.Lon()})
	l.CenterCoordinates = model.JSON(raw)
	return nil
}

type landscapeGroupInput struct {
	LandscapeSlug           string `json:"landscapeSlug" validate:"required"`
	GroupSlug               string `json:"groupSlug" validate:"required"`
	IsDefaultLandscapeGroup bool   `json:"isDefaultLandscapeGroup"`
	IsPartnership           bool   `json:"isPartnership"`
	PartnershipYear         *int   `json:"partnershipYear" validate:"omitempty,gte=1900,lte=2100"`
}

// RegisterLandscapesEndpoints registers landscapes, their memberships and
// landscape groups.
func RegisterLandscapesEndpoints(s *server.Server) {
	landscapesRouter := s.API().PathPrefix("/landscapes").Subrouter()
	landscapesRouter.Use(s.JWTMiddleware.Middleware)

	landscapesRouter.HandleFunc("", handleListLandscapes(s.LandscapesStore)).Methods("GET")
	landscapesRouter.HandleFunc("", handleCreateLandscape(s.LandscapesStore)).Methods("POST")
	landscapesRouter.HandleFunc("/{slug}", handleGetLandscape(s.LandscapesStore)).Methods("GET")
	landscapesRouter.HandleFunc("/{slug}", handleUpdateLandscape(s.LandscapesStore)).Methods("PUT")
	landscapesRouter.HandleFunc("/{slug}", handleDeleteLandscape(s.LandscapesStore)).Methods("DELETE")

	resolve := landscapeRoster(s.LandscapesStore)
	landscapesRouter.HandleFunc("/{slug}/memberships", handleListMemberships(resolve, s.MembershipsStore)).Methods("GET")
	landscapesRouter.HandleFunc("/{slug}/memberships", handleSaveMemberships(resolve, s.MembershipsStore, s.Notifier, s.Hub)).Methods("POST")
	landscapesRouter.HandleFunc("/{slug}/memberships/{mid}", handleUpdateMembership(resolve, s.MembershipsStore, s.Notifier, s.Hub)).Methods("PUT")
	landscapesRouter.HandleFunc("/{slug}/memberships/{mid}", handleDeleteMembership(resolve, s.MembershipsStore)).Methods("DELETE")

	lgRouter := s.API().PathPrefix("/landscape-groups").Subrouter()
	lgRouter.Use(s.JWTMiddleware.Middleware)
	lgRouter.HandleFunc("", handleCreateLandscapeGroup(s.LandscapesStore, s.GroupsStore)).Methods("POST")
	lgRouter.HandleFunc("/{id}", handleDeleteLandscapeGroup(s.LandscapesStore)).Methods("DELETE")
}

func landscapeRoster(landscapes store.LandscapesStore) rosterResolver {
	return func(r *http.Request) (*roster, error) {
		l, err := landscapes.FindLandscape(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			return nil, err
		}
		return &roster{kind: "landscape", id: l.ID, name: l.Name, list: l.MembershipList}, nil
	}
}

func landscapeResource(l *model.Landscape) audit.Resource {
	return auditResource(l.ID, "landscape", l.Name, nil)
}

func handleListLandscapes(landscapes store.LandscapesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := landscapes.ListLandscapes(r.Context(), listOptions(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, page)
	}
}

func handleGetLandscape(landscapes store.LandscapesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := landscapes.FindLandscape(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			respondWithServiceError(w, r, "Landscape", "view", err)
			return
		}
		respondWithJSON(w, http.StatusOK, l)
	}
}

func handleCreateLandscape(landscapes store.LandscapesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		var in landscapeInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Landscape", err)
			return
		}
		l := &model.Landscape{}
		if err := in.apply(l); err != nil {
			invalidData(w, "Landscape", err)
			return
		}
		if err := validation.Validate(l); err != nil {
			invalidData(w, "Landscape", err)
			return
		}
		if err := landscapes.CreateLandscape(r.Context(), l, user); err != nil {
			respondWithServiceError(w, r, "Landscape", "create", err)
			return
		}
		logAudit(r, audit.CreateEvent(user, landscapeResource(l), nil))
		respondWithJSON(w, http.StatusCreated, l)
	}
}

func handleUpdateLandscape(landscapes store.LandscapesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		l, err := landscapes.FindLandscape(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			respondWithServiceError(w, r, "Landscape", "update", err)
			return
		}
		if !permission.CanChangeLandscape(user, l) {
			notAllowed(w, "update", "Landscape")
			return
		}
		var in landscapeInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Landscape", err)
			return
		}
		if err := in.apply(l); err != nil {
			invalidData(w, "Landscape", err)
			return
		}
		if err := validation.Validate(l); err != nil {
			invalidData(w, "Landscape", err)
			return
		}
		if err := landscapes.UpdateLandscape(r.Context(), l); err != nil {
			respondWithServiceError(w, r, "Landscape", "update", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, landscapeResource(l), nil))
		respondWithJSON(w, http.StatusOK, l)
	}
}

func handleDeleteLandscape(landscapes store.LandscapesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		l, err := landscapes.FindLandscape(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			respondWithServiceError(w, r, "Landscape", "delete", err)
			return
		}
		if !permission.CanDeleteLandscape(user, l) {
			notAllowed(w, "delete", "Landscape")
			return
		}
		if err := landscapes.DeleteLandscape(r.Context(), l); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, landscapeResource(l), nil))
		respondWithJSON(w, http.StatusOK, l)
	}
}

func handleCreateLandscapeGroup(landscapes store.LandscapesStore, groups store.GroupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		var in landscapeGroupInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "LandscapeGroup", err)
			return
		}
		l, err := landscapes.FindLandscape(r.Context(), in.LandscapeSlug)
		if err != nil {
			respondWithServiceError(w, r, "Landscape", "create", err)
			return
		}
		g, err := groups.FindGroup(r.Context(), in.GroupSlug)
		if err != nil {
			respondWithServiceError(w, r, "Group", "create", err)
			return
		}
		if !permission.CanAddLandscapeGroup(user, l) {
			notAllowed(w, "create", "LandscapeGroup")
			return
		}
		lg := &model.LandscapeGroup{
			LandscapeID:             l.ID,
			GroupID:                 g.ID,
			IsDefaultLandscapeGroup: in.IsDefaultLandscapeGroup,
			IsPartnership:           in.IsPartnership,
			PartnershipYear:         in.PartnershipYear,
		}
		if err := landscapes.CreateLandscapeGroup(r.Context(), lg); err != nil {
			respondWithServiceError(w, r, "LandscapeGroup", "create", err)
			return
		}
		lg.Landscape, lg.Group = l, g
		logAudit(r, audit.CreateEvent(user, auditResource(lg.ID, "landscape_group", l.Name+" > "+g.Name, nil), nil))
		respondWithJSON(w, http.StatusCreated, lg)
	}
}

func handleDeleteLandscapeGroup(landscapes store.LandscapesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		id, err := pathID(r, "id")
		if err != nil {
			notFound(w, "LandscapeGroup")
			return
		}
		lg, err := landscapes.FindLandscapeGroup(r.Context(), id)
		if err != nil {
			respondWithServiceError(w, r, "LandscapeGroup", "delete", err)
			return
		}
		if lg.IsDefaultLandscapeGroup {
			notAllowed(w, "delete", "LandscapeGroup")
			return
		}
		if !permission.CanDeleteLandscapeGroup(user, lg.Landscape, lg.Group) {
			notAllowed(w, "delete", "LandscapeGroup")
			return
		}
		if err := landscapes.DeleteLandscapeGroup(r.Context(), lg); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, auditResource(lg.ID, "landscape_group", "", nil), nil))
		respondWithJSON(w, http.StatusOK, lg)
	}
}
