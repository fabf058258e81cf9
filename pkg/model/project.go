package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectSettings struct {
	TimestampedModel
	MemberCanUpdateSite       bool `gorm:"column:member_can_update_site" json:"memberCanUpdateSite"`
	MemberCanAddSiteToProject bool `gorm:"column:member_can_add_site_to_project" json:"memberCanAddSiteToProject"`
}

func (ProjectSettings) TableName() string {
	return "project_settings"
}

type Project struct {
	BaseModel
	Name             string               `gorm:"column:name" json:"name" validate:"required,max=120"`
	Description      string               `gorm:"column:description" json:"description" validate:"max=512"`
	MembershipListID uuid.UUID            `gorm:"column:membership_list_id;type:uuid" json:"-"`
	MembershipList   *MembershipList      `gorm:"foreignKey:MembershipListID" json:"membershipList,omitempty"`
	SettingsID       uuid.UUID            `gorm:"column:settings_id;type:uuid" json:"-"`
	Settings         *ProjectSettings     `gorm:"foreignKey:SettingsID" json:"settings,omitempty"`
	MeasurementUnits MeasurementUnits     `gorm:"column:measurement_units" json:"measurementUnits"`
	Privacy          ProjectPrivacy       `gorm:"column:privacy" json:"privacy"`
	Archived         bool                 `gorm:"column:archived" json:"archived"`
	SiteInstructions *string              `gorm:"column:site_instructions" json:"siteInstructions,omitempty"`
	SoilSettings     *ProjectSoilSettings `gorm:"foreignKey:ProjectID" json:"soilSettings,omitempty"`
	SeenBy           []User               `gorm:"many2many:project_seen_by;joinForeignKey:ProjectID;joinReferences:UserID" json:"-"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) BeforeSave(tx *gorm.DB) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Privacy == "" {
		p.Privacy = PrivacyPrivate
	}
	if p.MeasurementUnits == "" {
		p.MeasurementUnits = UnitsMetric
	}
	return nil
}

// MemberCanAddSite reports the project setting, treating missing settings as off.
func (p *Project) MemberCanAddSite() bool {
	return p.Settings != nil && p.Settings.MemberCanAddSiteToProject
}

type Site struct {
	BaseModel
	Name      string     `gorm:"column:name" json:"name" validate:"required,max=200"`
	Latitude  float64    `gorm:"column:latitude" json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64    `gorm:"column:longitude" json:"longitude" validate:"gte=-180,lte=180"`
	Elevation *float64   `gorm:"column:elevation" json:"elevation,omitempty"`
	Privacy   string     `gorm:"column:privacy;default:PRIVATE" json:"privacy"`
	Archived  bool       `gorm:"column:archived" json:"archived"`
	ProjectID *uuid.UUID `gorm:"column:project_id;type:uuid" json:"projectId,omitempty"`
	Project   *Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	OwnerID   *uuid.UUID `gorm:"column:owner_id;type:uuid" json:"ownerId,omitempty"`
	Owner     *User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Notes     []SiteNote `gorm:"foreignKey:SiteID" json:"notes,omitempty"`
}

func (Site) TableName() string {
	return "sites"
}

func (s *Site) BeforeSave(tx *gorm.DB) error {
	s.Name = strings.TrimSpace(s.Name)
	return nil
}

// IsUnaffiliated is true for sites owned by a user rather than a project.
func (s *Site) IsUnaffiliated() bool {
	return s.ProjectID == nil
}

// OwnedBy reports whether u owns the unaffiliated site.
func (s *Site) OwnedBy(u *User) bool {
	return u != nil && s.OwnerID != nil && *s.OwnerID == u.ID
}

// AddToProject affiliates the site, clearing its owner.
func (s *Site) AddToProject(project *Project) {
	s.ProjectID = &project.ID
	s.Project = project
	s.OwnerID = nil
	s.Owner = nil
}

// AddOwner makes the site unaffiliated and owned by u.
func (s *Site) AddOwner(u *User) {
	s.OwnerID = &u.ID
	s.Owner = u
	s.ProjectID = nil
	s.Project = nil
}

type SiteNote struct {
	BaseModel
	SiteID   uuid.UUID `gorm:"column:site_id;type:uuid" json:"siteId"`
	Site     *Site     `gorm:"foreignKey:SiteID" json:"-"`
	AuthorID uuid.UUID `gorm:"column:author_id;type:uuid" json:"authorId"`
	Author   *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content  string    `gorm:"column:content" json:"content" validate:"required"`
}

func (SiteNote) TableName() string {
	return "site_notes"
}

func (n *SiteNote) IsAuthor(u *User) bool {
	return u != nil && n.AuthorID == u.ID
}

type ExportToken struct {
	Token        string             `gorm:"column:token;primaryKey" json:"token"`
	ResourceType ExportResourceType `gorm:"column:resource_type" json:"resourceType"`
	ResourceID   string             `gorm:"column:resource_id" json:"resourceId"`
	UserID       *uuid.UUID         `gorm:"column:user_id;type:uuid" json:"-"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (ExportToken) TableName() string {
	return "export_tokens"
}
