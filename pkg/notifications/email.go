package notifications

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/metrics"
	"github.com/techmatters/terraso-go/pkg/model"
)

// TrackingParameters are appended to links that lead back to the web client.
var TrackingParameters = map[string]string{
	"utm_source":   "terraso",
	"utm_medium":   "email",
	"utm_campaign": "notifications",
}

// TokenIssuer signs the tokens embedded in email links.
type TokenIssuer interface {
	CreateUnsubscribeToken(user *model.User) (string, error)
	CreateStoryMapMembershipApproveToken(m *model.Membership) (string, error)
}

// EmailNotifier renders and sends notification emails.
type EmailNotifier struct {
	mailer   Mailer
	renderer *Renderer
	tokens   TokenIssuer
	webURL   string
	log      *zerolog.Logger
}

func NewEmailNotifier(mailer Mailer, renderer *Renderer, tokens TokenIssuer, webClientURL string) *EmailNotifier {
	return &EmailNotifier{
		mailer:   mailer,
		renderer: renderer,
		tokens:   tokens,
		webURL:   strings.TrimRight(webClientURL, "/"),
		log:      logging.Component("notifications"),
	}
}

func (n *EmailNotifier) link(path string, extra map[string]string) string {
	q := url.Values{}
	for k, v := range TrackingParameters {
		q.Set(k, v)
	}
	for k, v := range extra {
		q.Set(k, v)
	}
	return n.webURL + path + "?" + q.Encode()
}

// UnsubscribeURL links to the one-click unsubscribe page for user.
func (n *EmailNotifier) UnsubscribeURL(user *model.User) (string, error) {
	token, err := n.tokens.CreateUnsubscribeToken(user)
	if err != nil {
		return "", err
	}
	return n.webURL + "/notifications/unsubscribe?" + url.Values{"token": {token}}.Encode(), nil
}

func (n *EmailNotifier) send(ctx context.Context, tmpl string, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	err := n.mailer.Send(ctx, msgs...)
	for range msgs {
		metrics.RecordEmail(tmpl, err)
	}
	if err != nil {
		n.log.Error().Err(err).Str("template", tmpl).Int("count", len(msgs)).Msg("failed to send email")
	}
	return err
}

func (n *EmailNotifier) render(tmpl, language string, to []string, data interface{}) (*Message, error) {
	r, err := n.renderer.Render(tmpl, language, data)
	if err != nil {
		return nil, err
	}
	return &Message{To: to, Subject: r.Subject, HTML: r.HTML, Text: r.Text}, nil
}

type membershipData struct {
	FirstName      string
	MemberName     string
	GroupName      string
	RequestURL     string
	UnsubscribeURL string
}

// SendMembershipRequest tells every manager of group who has notifications
// enabled that user asked to join.
func (n *EmailNotifier) SendMembershipRequest(ctx context.Context, user *model.User, group *model.Group, managers []*model.User) error {
	var msgs []*Message
	for _, manager := range managers {
		if !manager.NotificationsEnabled() {
			continue
		}
		unsubscribe, err := n.UnsubscribeURL(manager)
		if err != nil {
			return err
		}
		msg, err := n.render(TemplateMembershipRequest, manager.Language(), []string{manager.NameAndEmail()}, membershipData{
			FirstName:      manager.FirstName,
			MemberName:     user.FullName(),
			GroupName:      group.Name,
			RequestURL:     n.link("/groups/"+group.Slug+"/members", nil),
			UnsubscribeURL: unsubscribe,
		})
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return n.send(ctx, TemplateMembershipRequest, msgs)
}

// SendMembershipApproval tells user their request to join group was approved.
func (n *EmailNotifier) SendMembershipApproval(ctx context.Context, user *model.User, group *model.Group) error {
	if !user.NotificationsEnabled() {
		return nil
	}
	unsubscribe, err := n.UnsubscribeURL(user)
	if err != nil {
		return err
	}
	msg, err := n.render(TemplateMembershipApproval, user.Language(), []string{user.NameAndEmail()}, membershipData{
		FirstName:      user.FirstName,
		MemberName:     user.FullName(),
		GroupName:      group.Name,
		RequestURL:     n.link("/groups/"+group.Slug, nil),
		UnsubscribeURL: unsubscribe,
	})
	if err != nil {
		return err
	}
	return n.send(ctx, TemplateMembershipApproval, []*Message{msg})
}

type storyMapInviteData struct {
	Registered       bool
	FirstName        string
	InviterFirstName string
	StoryMapTitle    string
	AcceptInviteURL  string
	UnsubscribeURL   string
}

// SendStoryMapInvites emails each invited membership an accept link.
// Registered users without notifications are skipped; pending emails always
// get the invite in the inviter's language.
func (n *EmailNotifier) SendStoryMapInvites(ctx context.Context, inviter *model.User, storyMap *model.StoryMap, memberships []*model.Membership) error {
	unsubscribe, err := n.UnsubscribeURL(inviter)
	if err != nil {
		return err
	}
	var msgs []*Message
	for _, m := range memberships {
		token, err := n.tokens.CreateStoryMapMembershipApproveToken(m)
		if err != nil {
			return err
		}
		data := storyMapInviteData{
			InviterFirstName: inviter.FirstName,
			StoryMapTitle:    storyMap.Title,
			AcceptInviteURL:  n.link("/tools/story-maps/accept", map[string]string{"token": token}),
			UnsubscribeURL:   unsubscribe,
		}
		var to, language string
		switch {
		case m.User != nil:
			if !m.User.NotificationsEnabled() {
				continue
			}
			data.Registered = true
			data.FirstName = m.User.FirstName
			to, language = m.User.NameAndEmail(), m.User.Language()
		case m.PendingEmail != nil:
			data.FirstName = *m.PendingEmail
			to, language = *m.PendingEmail, inviter.Language()
		default:
			continue
		}
		msg, err := n.render(TemplateStoryMapInvite, language, []string{to}, data)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return n.send(ctx, TemplateStoryMapInvite, msgs)
}

type projectInviteData struct {
	FirstName        string
	InviterFirstName string
	ProjectName      string
	Role             string
	ProjectURL       string
	UnsubscribeURL   string
}

// SendProjectInvite tells user they were added to project with role.
func (n *EmailNotifier) SendProjectInvite(ctx context.Context, inviter, user *model.User, project *model.Project, role model.ProjectRole) error {
	if !user.NotificationsEnabled() {
		return nil
	}
	unsubscribe, err := n.UnsubscribeURL(user)
	if err != nil {
		return err
	}
	msg, err := n.render(TemplateProjectInvite, user.Language(), []string{user.NameAndEmail()}, projectInviteData{
		FirstName:        user.FirstName,
		InviterFirstName: inviter.FirstName,
		ProjectName:      project.Name,
		Role:             string(role),
		ProjectURL:       n.link("/projects/"+project.ID.String(), nil),
		UnsubscribeURL:   unsubscribe,
	})
	if err != nil {
		return err
	}
	return n.send(ctx, TemplateProjectInvite, []*Message{msg})
}
