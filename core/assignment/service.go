package assignment

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/feedback"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("assignment")
	ErrSubmissionNotFound = core.NewNotFoundError("submission")
	ErrCreatorRequired    = core.NewPermissionError("only the teacher who created this assignment can delete it")
	ErrViewForbidden      = core.NewPermissionError("students can only view their own submission")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		// QueryAssignments returns matching assignments, newest first.
		QueryAssignments(ctx context.Context, filter QueryFilter) ([]Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
		DeleteGroupAssignments(ctx context.Context, groupID string) (int, error)
		// PutSubmission creates or replaces the submission of sub.UserID.
		PutSubmission(ctx context.Context, assignmentID string, sub Submission) error
		// PutSubmissions replaces the given submissions and stores the report, all at once.
		PutSubmissions(ctx context.Context, assignmentID string, subs []Submission, report AIReport) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, na NewAssignment) (Assignment, error)
		QueryForUser(ctx context.Context, actor user.User) ([]Assignment, error)
		QueryForGroup(ctx context.Context, actor user.User, groupIDOrSlug string) (group.Group, []Assignment, error)
		Get(ctx context.Context, actor user.User, id string) (Assignment, error)
		Delete(ctx context.Context, actor user.User, id string) error

		Submit(ctx context.Context, actor user.User, id string, ns NewSubmission) (sub Submission, created bool, err error)
		Grade(ctx context.Context, actor user.User, id, userID string, gs GradeSubmission) (Submission, error)
		ViewSubmission(ctx context.Context, actor user.User, id, userID string) (Submission, error)
		ListSubmissions(ctx context.Context, actor user.User, id string) ([]Submission, error)
		GenerateAIFeedback(ctx context.Context, actor user.User, id, markScheme string) (feedback.Report, error)
	}

	Service struct {
		repo           Repository
		grpSvc         group.ServiceInterface
		usrSvc         user.ServiceInterface
		fbSvc          feedback.ServiceInterface
		mailSvc        core.EmailService
		maxConcurrency int
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	grpSvc group.ServiceInterface,
	usrSvc user.ServiceInterface,
	fbSvc feedback.ServiceInterface,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	return &Service{
		repo:           repo,
		grpSvc:         grpSvc,
		usrSvc:         usrSvc,
		fbSvc:          fbSvc,
		mailSvc:        mailSvc,
		maxConcurrency: conf.AI.MaxConcurrency,
	}
}

// load finds the assignment and its group, then authorizes actor in the group as one of roles.
func (svc *Service) load(ctx context.Context, actor user.User, id string, roles ...string) (Assignment, group.Group, string, error) {
	if !core.IsValidID(id) {
		return Assignment{}, group.Group{}, "", ErrNotFound
	}
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, group.Group{}, "", err
	}
	grp, err := svc.grpSvc.Get(ctx, a.GroupID)
	if err != nil {
		return Assignment{}, group.Group{}, "", err
	}
	role, err := group.Authorize(grp, actor.ID, roles...)
	if err != nil {
		return Assignment{}, group.Group{}, "", err
	}
	return a, grp, role, nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, na NewAssignment) (Assignment, error) {
	grp, err := svc.grpSvc.GetForMember(ctx, actor, na.GroupID, user.RoleTeacher)
	if err != nil {
		return Assignment{}, err
	}

	now := core.NowFunc()
	a, err := svc.repo.CreateAssignment(ctx, Assignment{
		Title:       na.Title,
		Description: na.Description,
		GroupID:     grp.ID,
		Deadline:    na.Deadline,
		CreatedBy:   actor.ID,
		Submissions: make(Submissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Assignment{}, errors.Wrap(err, "creating assignment")
	}

	grps := map[string]group.Group{grp.ID: grp}
	if err := svc.populate(ctx, grps, &a); err != nil {
		return Assignment{}, err
	}
	svc.notifyPublished(ctx, grp, a)
	return a, nil
}

func (svc *Service) QueryForUser(ctx context.Context, actor user.User) ([]Assignment, error) {
	grps, err := svc.grpSvc.QueryForUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(grps) == 0 {
		return []Assignment{}, nil
	}

	grpMap := make(map[string]group.Group, len(grps))
	ids := make([]string, 0, len(grps))
	for _, grp := range grps {
		grpMap[grp.ID] = grp
		ids = append(ids, grp.ID)
	}
	return svc.query(ctx, actor, grpMap, ids)
}

func (svc *Service) QueryForGroup(ctx context.Context, actor user.User, groupIDOrSlug string) (group.Group, []Assignment, error) {
	grp, err := svc.grpSvc.GetForMember(ctx, actor, groupIDOrSlug)
	if err != nil {
		return group.Group{}, nil, err
	}
	if err := svc.grpSvc.Populate(ctx, &grp); err != nil {
		return group.Group{}, nil, err
	}
	asgmts, err := svc.query(ctx, actor, map[string]group.Group{grp.ID: grp}, []string{grp.ID})
	if err != nil {
		return group.Group{}, nil, err
	}
	return grp, asgmts, nil
}

func (svc *Service) query(ctx context.Context, actor user.User, grps map[string]group.Group, groupIDs []string) ([]Assignment, error) {
	asgmts, err := svc.repo.QueryAssignments(ctx, QueryFilter{GroupIDs: groupIDs})
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	ptrs := make([]*Assignment, 0, len(asgmts))
	for i := range asgmts {
		a := &asgmts[i]
		if role, _ := grps[a.GroupID].RoleOf(actor.ID); role != user.RoleTeacher {
			a.Submissions = a.Submissions.Only(actor.ID)
			a.MyStatus = a.StatusFor(actor.ID)
		}
		ptrs = append(ptrs, a)
	}
	if err := svc.populate(ctx, grps, ptrs...); err != nil {
		return nil, err
	}
	return asgmts, nil
}

// Get returns the assignment; students only see their own submission and status in it.
func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Assignment, error) {
	a, grp, role, err := svc.load(ctx, actor, id)
	if err != nil {
		return Assignment{}, err
	}
	if role != user.RoleTeacher {
		a.Submissions = a.Submissions.Only(actor.ID)
		a.MyStatus = a.StatusFor(actor.ID)
	}
	if err := svc.populate(ctx, map[string]group.Group{grp.ID: grp}, &a); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	a, _, _, err := svc.load(ctx, actor, id, user.RoleTeacher)
	if err != nil {
		return err
	}
	if a.CreatedBy != actor.ID {
		return ErrCreatorRequired
	}
	return errors.Wrap(svc.repo.DeleteAssignment(ctx, a.ID), "deleting assignment")
}

// Submit creates or replaces the submission of actor, who must be a student of the assignment's group.
// A resubmission resets the status to submitted and clears any previous feedback and grade.
func (svc *Service) Submit(ctx context.Context, actor user.User, id string, ns NewSubmission) (Submission, bool, error) {
	a, _, _, err := svc.load(ctx, actor, id, user.RoleStudent)
	if err != nil {
		return Submission{}, false, err
	}

	_, exists := a.Submissions[actor.ID]
	now := core.NowFunc()
	sub := Submission{
		UserID:      actor.ID,
		Content:     ns.Content,
		FileName:    ns.FileName,
		FileURL:     ns.FileURL,
		SubmittedAt: now,
		Late:        now.After(a.Deadline),
		Status:      StatusSubmitted,
	}
	if err := svc.repo.PutSubmission(ctx, a.ID, sub); err != nil {
		return Submission{}, false, errors.Wrap(err, "saving submission")
	}
	sub.User = actor.Ref()
	return sub, !exists, nil
}

// Grade records a teacher's feedback and grade on the submission of userID.
// An omitted feedback or grade keeps the previous one.
func (svc *Service) Grade(ctx context.Context, actor user.User, id, userID string, gs GradeSubmission) (Submission, error) {
	a, _, _, err := svc.load(ctx, actor, id, user.RoleTeacher)
	if err != nil {
		return Submission{}, err
	}
	sub, ok := a.Submissions[userID]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}

	now := core.NowFunc()
	if gs.Feedback != "" {
		sub.Feedback = gs.Feedback
	}
	if gs.Grade != nil {
		grade := *gs.Grade
		sub.Grade = &grade
	}
	sub.Status = StatusGraded
	sub.GradedAt = &now
	if err := svc.repo.PutSubmission(ctx, a.ID, sub); err != nil {
		return Submission{}, errors.Wrap(err, "grading submission")
	}

	refs, err := svc.usrSvc.Refs(ctx, sub.UserID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "populating submission")
	}
	sub.User = refs[sub.UserID]
	svc.notifyGraded(a, sub)
	return sub, nil
}

// ViewSubmission returns the submission of userID. Students may only view their own.
func (svc *Service) ViewSubmission(ctx context.Context, actor user.User, id, userID string) (Submission, error) {
	a, _, role, err := svc.load(ctx, actor, id)
	if err != nil {
		return Submission{}, err
	}
	if role != user.RoleTeacher && userID != actor.ID {
		return Submission{}, ErrViewForbidden
	}
	sub, ok := a.Submissions[userID]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	if err := svc.populateSubmissions(ctx, &sub); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ListSubmissions returns all the submissions to teachers, and their own one to students.
func (svc *Service) ListSubmissions(ctx context.Context, actor user.User, id string) ([]Submission, error) {
	a, _, role, err := svc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if role != user.RoleTeacher {
		a.Submissions = a.Submissions.Only(actor.ID)
	}
	subs := a.Submissions.List()
	ptrs := make([]*Submission, 0, len(subs))
	for i := range subs {
		ptrs = append(ptrs, &subs[i])
	}
	if err := svc.populateSubmissions(ctx, ptrs...); err != nil {
		return nil, err
	}
	return subs, nil
}

// GenerateAIFeedback generates feedback for every submission concurrently, then saves them all as graded.
// Nothing is saved if any generation fails.
func (svc *Service) GenerateAIFeedback(ctx context.Context, actor user.User, id, markScheme string) (feedback.Report, error) {
	a, _, _, err := svc.load(ctx, actor, id, user.RoleTeacher)
	if err != nil {
		return feedback.Report{}, err
	}

	subs := a.Submissions.List()
	if len(subs) == 0 {
		return feedback.Report{Evaluation: feedback.NoSubmissionsText, Results: []feedback.Result{}}, nil
	}

	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.UserID)
	}
	refs, err := svc.usrSvc.Refs(ctx, ids...)
	if err != nil {
		return feedback.Report{}, errors.Wrap(err, "populating submissions")
	}

	now := core.NowFunc()
	graded := make([]Submission, len(subs))
	results := make([]feedback.Result, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	if svc.maxConcurrency > 0 {
		g.SetLimit(svc.maxConcurrency)
	}
	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			username := sub.UserID
			if ref, ok := refs[sub.UserID]; ok {
				username = ref.Username
			}

			text, err := svc.fbSvc.SubmissionFeedback(gctx, feedback.SubmissionInput{
				AssignmentTitle:       a.Title,
				AssignmentDescription: a.Description,
				MarkScheme:            markScheme,
				StudentName:           username,
				Content:               sub.Content,
			})
			if err != nil {
				return errors.Wrapf(err, "submission of %s", username)
			}

			gradedAt := now
			sub.Feedback = text
			sub.Status = StatusGraded
			sub.GradedAt = &gradedAt
			graded[i] = sub
			results[i] = feedback.Result{UserID: sub.UserID, Username: username, Feedback: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return feedback.Report{}, errors.Wrap(err, "generating AI feedback")
	}

	summary := feedback.SummaryReport(a.Title, results, now)
	report := AIReport{MarkScheme: markScheme, Summary: summary}
	if err := svc.repo.PutSubmissions(ctx, a.ID, graded, report); err != nil {
		return feedback.Report{}, errors.Wrap(err, "saving AI feedback")
	}

	for _, sub := range graded {
		sub.User = refs[sub.UserID]
		svc.notifyGraded(a, sub)
	}
	return feedback.Report{Evaluation: summary, Results: results}, nil
}

// populate fills in the group, creator and submitters references of the assignments.
func (svc *Service) populate(ctx context.Context, grps map[string]group.Group, asgmts ...*Assignment) error {
	ids := make([]string, 0, len(asgmts))
	for _, a := range asgmts {
		ids = append(ids, a.CreatedBy)
		for uid := range a.Submissions {
			ids = append(ids, uid)
		}
	}
	refs, err := svc.usrSvc.Refs(ctx, core.IDsOf(ids, func(id string) string { return id })...)
	if err != nil {
		return errors.Wrap(err, "populating assignments")
	}

	for _, a := range asgmts {
		if grp, ok := grps[a.GroupID]; ok {
			a.Group = grp.Ref()
		}
		a.Creator = refs[a.CreatedBy]
		for uid, sub := range a.Submissions {
			sub.User = refs[uid]
			a.Submissions[uid] = sub
		}
	}
	return nil
}

func (svc *Service) populateSubmissions(ctx context.Context, subs ...*Submission) error {
	refs, err := svc.usrSvc.Refs(ctx, core.IDsOf(subs, func(s *Submission) string { return s.UserID })...)
	if err != nil {
		return errors.Wrap(err, "populating submissions")
	}
	for _, sub := range subs {
		sub.User = refs[sub.UserID]
	}
	return nil
}
