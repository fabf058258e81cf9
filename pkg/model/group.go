package model

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Group struct {
	BaseModel
	Slug             string          `gorm:"column:slug" json:"slug"`
	Name             string          `gorm:"column:name" json:"name" validate:"required,max=128"`
	Description      string          `gorm:"column:description" json:"description" validate:"max=2048"`
	Website          string          `gorm:"column:website" json:"website" validate:"omitempty,url,max=500"`
	Email            string          `gorm:"column:email" json:"email" validate:"omitempty,email"`
	CreatedByID      *uuid.UUID      `gorm:"column:created_by_id;type:uuid" json:"createdById,omitempty"`
	MembershipListID uuid.UUID       `gorm:"column:membership_list_id;type:uuid" json:"-"`
	MembershipList   *MembershipList `gorm:"foreignKey:MembershipListID" json:"membershipList,omitempty"`
}

func (Group) TableName() string {
	return "groups"
}

// BeforeSave trims text fields and derives the slug on create.
func (g *Group) BeforeSave(tx *gorm.DB) error {
	name, err := ValidateName(g.Name)
	if err != nil {
		return err
	}
	g.Name = name
	g.Description = strings.TrimSpace(g.Description)
	if g.Slug == "" {
		g.Slug = Slugify(g.Name)
	}
	return nil
}

type GroupAssociation struct {
	BaseModel
	ParentGroupID uuid.UUID `gorm:"column:parent_group_id;type:uuid" json:"parentGroupId"`
	ParentGroup   *Group    `gorm:"foreignKey:ParentGroupID" json:"parentGroup,omitempty"`
	ChildGroupID  uuid.UUID `gorm:"column:child_group_id;type:uuid" json:"childGroupId"`
	ChildGroup    *Group    `gorm:"foreignKey:ChildGroupID" json:"childGroup,omitempty"`
}

func (GroupAssociation) TableName() string {
	return "group_associations"
}

type Landscape struct {
	BaseModel
	Slug                    string            `gorm:"column:slug" json:"slug"`
	Name                    string            `gorm:"column:name" json:"name" validate:"required,max=128"`
	Description             string            `gorm:"column:description" json:"description"`
	Website                 string            `gorm:"column:website" json:"website" validate:"omitempty,url,max=500"`
	Location                string            `gorm:"column:location" json:"location" validate:"max=128"`
	Email                   string            `gorm:"column:email" json:"email" validate:"omitempty,email"`
	AreaPolygon             JSON              `gorm:"column:area_polygon;type:jsonb" json:"areaPolygon,omitempty"`
	AreaScalarM2            *float64          `gorm:"column:area_scalar_m2" json:"areaScalarM2,omitempty"`
	CenterCoordinates       JSON              `gorm:"column:center_coordinates;type:jsonb" json:"centerCoordinates,omitempty"`
	Population              *int              `gorm:"column:population" json:"population,omitempty"`
	PartnershipStatus       PartnershipStatus `gorm:"column:partnership_status" json:"partnershipStatus"`
	ProfileImage            string            `gorm:"column:profile_image" json:"profileImage"`
	ProfileImageDescription string            `gorm:"column:profile_image_description" json:"profileImageDescription"`
	CreatedByID             *uuid.UUID        `gorm:"column:created_by_id;type:uuid" json:"createdById,omitempty"`
	MembershipListID        uuid.UUID         `gorm:"column:membership_list_id;type:uuid" json:"-"`
	MembershipList          *MembershipList   `gorm:"foreignKey:MembershipListID" json:"membershipList,omitempty"`
	LandscapeGroups         []LandscapeGroup  `gorm:"foreignKey:LandscapeID" json:"associatedGroups,omitempty"`
}

func (Landscape) TableName() string {
	return "landscapes"
}

func (l *Landscape) BeforeSave(tx *gorm.DB) error {
	name, err := ValidateName(l.Name)
	if err != nil {
		return err
	}
	l.Name = name
	l.Description = strings.TrimSpace(l.Description)
	if l.Slug == "" {
		l.Slug = Slugify(l.Name)
	}
	return nil
}

type LandscapeGroup struct {
	BaseModel
	LandscapeID             uuid.UUID  `gorm:"column:landscape_id;type:uuid" json:"landscapeId"`
	Landscape               *Landscape `gorm:"foreignKey:LandscapeID" json:"landscape,omitempty"`
	GroupID                 uuid.UUID  `gorm:"column:group_id;type:uuid" json:"groupId"`
	Group                   *Group     `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	IsDefaultLandscapeGroup bool       `gorm:"column:is_default_landscape_group" json:"isDefaultLandscapeGroup"`
	IsPartnership           bool       `gorm:"column:is_partnership" json:"isPartnership"`
	PartnershipYear         *int       `gorm:"column:partnership_year" json:"partnershipYear,omitempty"`
}

func (LandscapeGroup) TableName() string {
	return "landscape_groups"
}
