package model

import "strings"

type ProjectRole string

const (
	ProjectRoleManager     ProjectRole = "manager"
	ProjectRoleContributor ProjectRole = "contributor"
	ProjectRoleViewer      ProjectRole = "viewer"
)

func (r ProjectRole) Valid() bool {
	switch r {
	case ProjectRoleManager, ProjectRoleContributor, ProjectRoleViewer:
		return true
	}
	return false
}

type GroupRole string

const (
	GroupRoleManager GroupRole = "manager"
	GroupRoleMember  GroupRole = "member"
)

func (r GroupRole) Valid() bool {
	return r == GroupRoleManager || r == GroupRoleMember
}

// StoryMapRole values are held by story map memberships.
const (
	StoryMapRoleEditor = "editor"
)

type MembershipStatus string

const (
	MembershipApproved MembershipStatus = "approved"
	MembershipPending  MembershipStatus = "pending"
)

// ParseMembershipStatus falls back to pending for unknown input.
func ParseMembershipStatus(s string) MembershipStatus {
	if MembershipStatus(strings.ToLower(s)) == MembershipApproved {
		return MembershipApproved
	}
	return MembershipPending
}

type EnrollMethod string

const (
	EnrollJoin   EnrollMethod = "join"
	EnrollInvite EnrollMethod = "invite"
	EnrollBoth   EnrollMethod = "both"
)

func (e EnrollMethod) Valid() bool {
	switch e {
	case EnrollJoin, EnrollInvite, EnrollBoth:
		return true
	}
	return false
}

type MembershipType string

const (
	MembershipTypeOpen   MembershipType = "open"
	MembershipTypeClosed MembershipType = "closed"
)

// ParseMembershipType falls back to open for unknown input.
func ParseMembershipType(s string) MembershipType {
	if MembershipType(strings.ToLower(s)) == MembershipTypeClosed {
		return MembershipTypeClosed
	}
	return MembershipTypeOpen
}

type ProjectPrivacy string

const (
	PrivacyPrivate ProjectPrivacy = "PRIVATE"
	PrivacyPublic  ProjectPrivacy = "PUBLIC"
)

func (p ProjectPrivacy) Valid() bool {
	return p == PrivacyPrivate || p == PrivacyPublic
}

type MeasurementUnits string

const (
	UnitsEnglish  MeasurementUnits = "ENGLISH"
	UnitsImperial MeasurementUnits = "IMPERIAL"
	UnitsMetric   MeasurementUnits = "METRIC"
)

type EntryType string

const (
	EntryTypeFile EntryType = "file"
	EntryTypeLink EntryType = "link"
)

func (e EntryType) Valid() bool {
	return e == EntryTypeFile || e == EntryTypeLink
}

type PartnershipStatus string

const (
	PartnershipNone       PartnershipStatus = ""
	PartnershipNo         PartnershipStatus = "no"
	PartnershipInProgress PartnershipStatus = "in-progress"
	PartnershipYes        PartnershipStatus = "yes"
)

func (p PartnershipStatus) Valid() bool {
	switch p {
	case PartnershipNone, PartnershipNo, PartnershipInProgress, PartnershipYes:
		return true
	}
	return false
}

type ExportResourceType string

const (
	ExportUser    ExportResourceType = "USER"
	ExportProject ExportResourceType = "PROJECT"
	ExportSite    ExportResourceType = "SITE"
)

// ParseExportResourceType accepts any case and reports whether s is known.
func ParseExportResourceType(s string) (ExportResourceType, bool) {
	t := ExportResourceType(strings.ToUpper(s))
	switch t {
	case ExportUser, ExportProject, ExportSite:
		return t, true
	}
	return "", false
}

type AuditEvent string

const (
	AuditCreate AuditEvent = "CREATE"
	AuditRead   AuditEvent = "READ"
	AuditChange AuditEvent = "CHANGE"
	AuditDelete AuditEvent = "DELETE"
	AuditAuth   AuditEvent = "AUTH"
)

type ShareAccess string

const (
	ShareAccessNo            ShareAccess = "no"
	ShareAccessAll           ShareAccess = "all"
	ShareAccessTargetMembers ShareAccess = "target_members_only"
)
