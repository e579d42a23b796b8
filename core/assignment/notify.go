package assignment

import (
	"context"
	"net/mail"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
)

type (
	publishedMailData struct {
		Username        string
		GroupName       string
		AssignmentID    string
		AssignmentTitle string
		Deadline        string
	}

	gradedMailData struct {
		Username        string
		AssignmentID    string
		AssignmentTitle string
		HasGrade        bool
		Grade           int
	}
)

// notifyPublished emails the students of grp about the new assignment.
func (svc *Service) notifyPublished(ctx context.Context, grp group.Group, a Assignment) {
	if svc.mailSvc == nil {
		return
	}

	studentIDs := make([]string, 0, len(grp.Participants))
	for _, p := range grp.Participants {
		if p.Role == user.RoleStudent {
			studentIDs = append(studentIDs, p.UserID)
		}
	}
	if len(studentIDs) == 0 {
		return
	}
	refs, err := svc.usrSvc.Refs(ctx, studentIDs...)
	if err != nil {
		return // notifications are best-effort
	}

	msgs := make([]*core.EmailMessage, 0, len(refs))
	for _, id := range studentIDs {
		ref, ok := refs[id]
		if !ok || ref.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: ref.Username, Address: ref.Email}},
			Subject:      "New assignment: " + a.Title,
			TemplateName: "assignment_published",
			TemplateData: publishedMailData{
				Username:        ref.Username,
				GroupName:       grp.Name,
				AssignmentID:    a.ID,
				AssignmentTitle: a.Title,
				Deadline:        a.Deadline.Format("Mon, 02 Jan 2006 15:04 MST"),
			},
		})
	}
	svc.mailSvc.SendMessages(msgs...)
}

// notifyGraded emails the student who made sub. sub.User must be populated.
func (svc *Service) notifyGraded(a Assignment, sub Submission) {
	if svc.mailSvc == nil || sub.User == nil || sub.User.Email == "" {
		return
	}

	data := gradedMailData{
		Username:        sub.User.Username,
		AssignmentID:    a.ID,
		AssignmentTitle: a.Title,
	}
	if sub.Grade != nil {
		data.HasGrade = true
		data.Grade = *sub.Grade
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: sub.User.Username, Address: sub.User.Email}},
		Subject:      "Your submission was graded: " + a.Title,
		TemplateName: "submission_graded",
		TemplateData: data,
	})
}
