package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource kinds used by shared resources and visualization owners.
const (
	TargetGroup     = "group"
	TargetLandscape = "landscape"
	SourceDataEntry = "data_entry"
)

type DataEntry struct {
	BaseModel
	Slug            string           `gorm:"column:slug" json:"slug"`
	Name            string           `gorm:"column:name" json:"name" validate:"required,max=128"`
	Description     string           `gorm:"column:description" json:"description"`
	EntryType       EntryType        `gorm:"column:entry_type" json:"entryType" validate:"oneof=file link"`
	ResourceType    string           `gorm:"column:resource_type" json:"resourceType" validate:"max=255"`
	URL             string           `gorm:"column:url" json:"url"`
	Size            *int64           `gorm:"column:size" json:"size,omitempty"`
	CreatedByID     *uuid.UUID       `gorm:"column:created_by_id;type:uuid" json:"createdById,omitempty"`
	CreatedBy       *User            `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	FileRemovedAt   *time.Time       `gorm:"column:file_removed_at" json:"fileRemovedAt,omitempty"`
	SharedResources []SharedResource `gorm:"-" json:"sharedResources,omitempty"`
}

func (DataEntry) TableName() string {
	return "data_entries"
}

func (d *DataEntry) BeforeSave(tx *gorm.DB) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	if d.Slug == "" {
		d.Slug = Slugify(d.Name)
	}
	return nil
}

func (d *DataEntry) IsCreatedBy(u *User) bool {
	return u != nil && d.CreatedByID != nil && *d.CreatedByID == u.ID
}

// SharedResource links a data entry to a group or landscape.
type SharedResource struct {
	BaseModel
	SourceType  string      `gorm:"column:source_type" json:"sourceType"`
	SourceID    uuid.UUID   `gorm:"column:source_id;type:uuid" json:"sourceId"`
	TargetType  string      `gorm:"column:target_type" json:"targetType"`
	TargetID    uuid.UUID   `gorm:"column:target_id;type:uuid" json:"targetId"`
	ShareAccess ShareAccess `gorm:"column:share_access;default:target_members_only" json:"shareAccess"`
	ShareUUID   uuid.UUID   `gorm:"column:share_uuid;type:uuid" json:"shareUuid"`
}

func (SharedResource) TableName() string {
	return "shared_resources"
}

func (s *SharedResource) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if s.ShareUUID == uuid.Nil {
		s.ShareUUID = uuid.New()
	}
	return nil
}

type VisualizationConfig struct {
	BaseModel
	Slug                string     `gorm:"column:slug" json:"slug"`
	Title               string     `gorm:"column:title" json:"title" validate:"required,max=128"`
	Description         string     `gorm:"column:description" json:"description"`
	Configuration       JSON       `gorm:"column:configuration;type:jsonb" json:"configuration,omitempty"`
	MapboxTilesetID     *string    `gorm:"column:mapbox_tileset_id" json:"mapboxTilesetId,omitempty"`
	MapboxTilesetStatus string     `gorm:"column:mapbox_tileset_status;default:pending" json:"mapboxTilesetStatus"`
	DataEntryID         uuid.UUID  `gorm:"column:data_entry_id;type:uuid" json:"dataEntryId"`
	DataEntry           *DataEntry `gorm:"foreignKey:DataEntryID" json:"dataEntry,omitempty"`
	OwnerType           string     `gorm:"column:owner_type" json:"ownerType"`
	OwnerID             *uuid.UUID `gorm:"column:owner_id;type:uuid" json:"ownerId,omitempty"`
	CreatedByID         *uuid.UUID `gorm:"column:created_by_id;type:uuid" json:"createdById,omitempty"`
}

func (VisualizationConfig) TableName() string {
	return "visualization_configs"
}

func (v *VisualizationConfig) BeforeSave(tx *gorm.DB) error {
	v.Title = strings.TrimSpace(v.Title)
	if v.Slug == "" {
		v.Slug = Slugify(v.Title)
	}
	return nil
}

func (v *VisualizationConfig) IsCreatedBy(u *User) bool {
	return u != nil && v.CreatedByID != nil && *v.CreatedByID == u.ID
}

type StoryMap struct {
	BaseModel
	Slug             string          `gorm:"column:slug" json:"slug"`
	StoryMapID       string          `gorm:"column:story_map_id" json:"storyMapId"`
	Title            string          `gorm:"column:title" json:"title" validate:"required,max=128"`
	Configuration    JSON            `gorm:"column:configuration;type:jsonb" json:"configuration,omitempty"`
	CreatedByID      *uuid.UUID      `gorm:"column:created_by_id;type:uuid" json:"createdById,omitempty"`
	CreatedBy        *User           `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	IsPublished      bool            `gorm:"column:is_published" json:"isPublished"`
	PublishedAt      *time.Time      `gorm:"column:published_at" json:"publishedAt,omitempty"`
	MembershipListID *uuid.UUID      `gorm:"column:membership_list_id;type:uuid" json:"-"`
	MembershipList   *MembershipList `gorm:"foreignKey:MembershipListID" json:"membershipList,omitempty"`
}

func (StoryMap) TableName() string {
	return "story_maps"
}

// BeforeSave validates the title, derives the slug and short id, and stamps the
// first publication.
func (s *StoryMap) BeforeSave(tx *gorm.DB) error {
	title, err := ValidateName(s.Title)
	if err != nil {
		return err
	}
	s.Title = title
	if s.Slug == "" {
		s.Slug = Slugify(s.Title)
	}
	if s.StoryMapID == "" {
		s.StoryMapID = strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	}
	if s.IsPublished && s.PublishedAt == nil {
		now := time.Now()
		s.PublishedAt = &now
	}
	return nil
}

func (s *StoryMap) IsCreatedBy(u *User) bool {
	return u != nil && s.CreatedByID != nil && *s.CreatedByID == u.ID
}
