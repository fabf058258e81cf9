package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
)

// Metadata is free-form context stored with an event.
type Metadata map[string]interface{}

// Entry is the persisted form of an event, one row of audit_logs.
type Entry struct {
	ID           uuid.UUID        `json:"id"`
	Timestamp    time.Time        `json:"timestamp"`
	ClientTime   time.Time        `json:"clientTimestamp"`
	UserID       *uuid.UUID       `json:"userId,omitempty"`
	UserName     string           `json:"userHumanReadable"`
	Event        model.AuditEvent `json:"event"`
	ResourceID   *uuid.UUID       `json:"resourceId,omitempty"`
	ResourceType string           `json:"resourceContentType"`
	ResourceJSON json.RawMessage  `json:"resourceJsonRepr"`
	ResourceName string           `json:"resourceHumanReadable"`
	Metadata     Metadata         `json:"metadata"`
	Message      string           `json:"message"`
}

// Resource names what an event acted on. Value, when set, is stored as the
// resource's JSON representation.
type Resource struct {
	ID    uuid.UUID
	Type  string
	Name  string
	Value interface{}
}

// ResourceEvent records a create, read, change or delete of a resource.
type ResourceEvent struct {
	Action     model.AuditEvent
	User       *model.User
	ClientIP   string
	Resource   Resource
	Metadata   Metadata
	ClientTime time.Time
}

func newResourceEvent(action model.AuditEvent, user *model.User, r Resource, metadata Metadata) ResourceEvent {
	return ResourceEvent{Action: action, User: user, Resource: r, Metadata: metadata, ClientTime: time.Now().UTC()}
}

func CreateEvent(user *model.User, r Resource, metadata Metadata) ResourceEvent {
	return newResourceEvent(model.AuditCreate, user, r, metadata)
}

func ChangeEvent(user *model.User, r Resource, metadata Metadata) ResourceEvent {
	return newResourceEvent(model.AuditChange, user, r, metadata)
}

func DeleteEvent(user *model.User, r Resource, metadata Metadata) ResourceEvent {
	return newResourceEvent(model.AuditDelete, user, r, metadata)
}

func ReadEvent(user *model.User, r Resource, metadata Metadata) ResourceEvent {
	return newResourceEvent(model.AuditRead, user, r, metadata)
}

// WithClient sets the caller's address and, when known, the time the client
// reported for the action.
func (e ResourceEvent) WithClient(ip string, clientTime *time.Time) ResourceEvent {
	e.ClientIP = ip
	if clientTime != nil && !clientTime.IsZero() {
		e.ClientTime = clientTime.UTC()
	}
	return e
}

var actionVerbs = map[model.AuditEvent]string{
	model.AuditCreate: "created",
	model.AuditRead:   "read",
	model.AuditChange: "changed",
	model.AuditDelete: "deleted",
}

func userLabel(u *model.User) string {
	if u == nil {
		return "anonymous"
	}
	return u.Email
}

func (e ResourceEvent) MessageID() string {
	return fmt.Sprintf("%s-%s", strings.ToLower(string(e.Action)), e.Resource.Type)
}

func (e ResourceEvent) Message() string {
	name := e.Resource.Name
	if name == "" {
		name = e.Resource.ID.String()
	}
	return fmt.Sprintf("%s %s %s %s", userLabel(e.User), actionVerbs[e.Action], e.Resource.Type, name)
}

func (e ResourceEvent) Severity() Severity {
	if e.Action == model.AuditDelete {
		return SeverityNotice
	}
	return SeverityInfo
}

func (e ResourceEvent) Facility() int {
	return FacilityUser
}

func (e ResourceEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": userLabel(e.User),
		},
		SDIDSubject: {
			"type": e.Resource.Type,
			"id":   e.Resource.ID.String(),
		},
		SDIDAction: {
			"operation": string(e.Action),
		},
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}

func (e ResourceEvent) Entry() Entry {
	entry := Entry{
		ClientTime:   e.ClientTime,
		UserName:     userLabel(e.User),
		Event:        e.Action,
		ResourceType: e.Resource.Type,
		ResourceName: e.Resource.Name,
		Metadata:     e.Metadata,
		Message:      e.Message(),
	}
	if e.User != nil {
		id := e.User.ID
		entry.UserID = &id
	}
	if e.Resource.ID != uuid.Nil {
		id := e.Resource.ID
		entry.ResourceID = &id
	}
	if e.Resource.Value != nil {
		if b, err := json.Marshal(e.Resource.Value); err == nil {
			entry.ResourceJSON = b
		}
	}
	return entry
}

// AuthenticateEvent records a sign in through a provider token exchange or
// a token refresh.
type AuthenticateEvent struct {
	UserID       *uuid.UUID
	Email        string
	ClientIP     string
	Method       string
	Success      bool
	ErrorMessage string
}

func (e AuthenticateEvent) MessageID() string {
	return "authn"
}

func (e AuthenticateEvent) Message() string {
	who := e.Email
	if who == "" {
		who = "unknown user"
	}
	if e.Success {
		return fmt.Sprintf("%s successfully authenticated with %s", who, e.Method)
	}
	msg := fmt.Sprintf("%s failed to authenticate with %s", who, e.Method)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e AuthenticateEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e AuthenticateEvent) Facility() int {
	return FacilityAuthPriv
}

func (e AuthenticateEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"method": e.Method,
			"user":   e.Email,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "authenticate",
			"result":    result,
		},
	}
}

func (e AuthenticateEvent) Entry() Entry {
	return Entry{
		ClientTime:   time.Now().UTC(),
		UserID:       e.UserID,
		UserName:     e.Email,
		Event:        model.AuditAuth,
		ResourceType: "session",
		Metadata:     Metadata{"method": e.Method, "success": e.Success, "ip": e.ClientIP},
		Message:      e.Message(),
	}
}
