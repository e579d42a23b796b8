package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/storage/database"
)

type (
	submissionDoc struct {
		UserID      primitive.ObjectID `bson:"user_id"`
		Content     string             `bson:"content"`
		FileName    string             `bson:"file_name,omitempty"`
		FileURL     string             `bson:"file_url,omitempty"`
		SubmittedAt time.Time          `bson:"submitted_at"`
		Late        bool               `bson:"late"`
		Status      string             `bson:"status"`
		Feedback    string             `bson:"feedback,omitempty"`
		Grade       *int               `bson:"grade,omitempty"`
		GradedAt    *time.Time         `bson:"graded_at,omitempty"`
	}

	// assignmentDoc keys submissions by the hex id of their student.
	assignmentDoc struct {
		ID           primitive.ObjectID       `bson:"_id"`
		Title        string                   `bson:"title"`
		Description  string                   `bson:"description"`
		GroupID      primitive.ObjectID       `bson:"group_id"`
		Deadline     time.Time                `bson:"deadline"`
		CreatedBy    primitive.ObjectID       `bson:"created_by"`
		Submissions  map[string]submissionDoc `bson:"submissions"`
		AIMarkScheme string                   `bson:"ai_mark_scheme,omitempty"`
		AIReport     string                   `bson:"ai_report,omitempty"`
		CreatedAt    time.Time                `bson:"created_at"`
		UpdatedAt    time.Time                `bson:"updated_at"`
	}
)

type assignmentRepository struct {
	coll *mongo.Collection
}

var (
	_ assignment.Repository   = (*assignmentRepository)(nil) // interface compliance check
	_ group.AssignmentCleaner = (*assignmentRepository)(nil)
)

func NewAssignmentRepository(db *mongo.Database) *assignmentRepository {
	return &assignmentRepository{coll: db.Collection(database.AssignmentCollection)}
}

func (repo assignmentRepository) submissionDoc(sub assignment.Submission) submissionDoc {
	uid, _ := objectID(sub.UserID)
	doc := submissionDoc{
		UserID:      uid,
		Content:     sub.Content,
		FileName:    sub.FileName,
		FileURL:     sub.FileURL,
		SubmittedAt: sub.SubmittedAt.UTC(),
		Late:        sub.Late,
		Status:      sub.Status,
		Feedback:    sub.Feedback,
		Grade:       sub.Grade,
	}
	if sub.GradedAt != nil {
		gradedAt := sub.GradedAt.UTC()
		doc.GradedAt = &gradedAt
	}
	return doc
}

func (repo assignmentRepository) toDoc(a assignment.Assignment) assignmentDoc {
	oid, _ := objectID(a.ID)
	gid, _ := objectID(a.GroupID)
	creator, _ := objectID(a.CreatedBy)

	subs := make(map[string]submissionDoc, len(a.Submissions))
	for uid, sub := range a.Submissions {
		subs[uid] = repo.submissionDoc(sub)
	}
	return assignmentDoc{
		ID:           oid,
		Title:        a.Title,
		Description:  a.Description,
		GroupID:      gid,
		Deadline:     a.Deadline.UTC(),
		CreatedBy:    creator,
		Submissions:  subs,
		AIMarkScheme: a.AIMarkScheme,
		AIReport:     a.AIReport,
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}
}

func (repo assignmentRepository) fromDoc(doc assignmentDoc) assignment.Assignment {
	subs := make(assignment.Submissions, len(doc.Submissions))
	for uid, s := range doc.Submissions {
		sub := assignment.Submission{
			UserID:      uid,
			Content:     s.Content,
			FileName:    s.FileName,
			FileURL:     s.FileURL,
			SubmittedAt: s.SubmittedAt.UTC(),
			Late:        s.Late,
			Status:      s.Status,
			Feedback:    s.Feedback,
			Grade:       s.Grade,
		}
		if s.GradedAt != nil {
			gradedAt := s.GradedAt.UTC()
			sub.GradedAt = &gradedAt
		}
		subs[uid] = sub
	}
	return assignment.Assignment{
		ID:           hexOrEmpty(doc.ID),
		Title:        doc.Title,
		Description:  doc.Description,
		GroupID:      hexOrEmpty(doc.GroupID),
		Deadline:     doc.Deadline.UTC(),
		CreatedBy:    hexOrEmpty(doc.CreatedBy),
		Submissions:  subs,
		AIMarkScheme: doc.AIMarkScheme,
		AIReport:     doc.AIReport,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	doc := repo.toDoc(a)
	doc.ID = primitive.NewObjectID()
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return repo.fromDoc(doc), nil
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	oid, ok := objectID(id)
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}

	var doc assignmentDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "selecting assignment")
	}
	return repo.fromDoc(doc), nil
}

func (repo assignmentRepository) QueryAssignments(ctx context.Context, filter assignment.QueryFilter) ([]assignment.Assignment, error) {
	f := bson.M{}
	if filter.GroupIDs != nil {
		f["group_id"] = bson.M{"$in": objectIDs(filter.GroupIDs)}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := repo.coll.Find(ctx, f, opts)
	if err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	var docs []assignmentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding assignments")
	}

	asgmts := make([]assignment.Assignment, 0, len(docs))
	for _, doc := range docs {
		asgmts = append(asgmts, repo.fromDoc(doc))
	}
	return asgmts, nil
}

func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return assignment.ErrNotFound
	}
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if res.DeletedCount == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo assignmentRepository) DeleteGroupAssignments(ctx context.Context, groupID string) (int, error) {
	gid, ok := objectID(groupID)
	if !ok {
		return 0, nil
	}
	res, err := repo.coll.DeleteMany(ctx, bson.M{"group_id": gid})
	if err != nil {
		return 0, errors.Wrap(err, "deleting group assignments")
	}
	return int(res.DeletedCount), nil
}

// update applies set to the assignment in a single, atomic document update.
func (repo assignmentRepository) update(ctx context.Context, assignmentID string, set bson.M, msg string) error {
	oid, ok := objectID(assignmentID)
	if !ok {
		return assignment.ErrNotFound
	}
	set["updated_at"] = core.NowFunc()
	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if res.MatchedCount == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

// submissionsSet targets each submission's own key, leaving the other students' submissions untouched.
func (repo assignmentRepository) submissionsSet(subs ...assignment.Submission) bson.M {
	set := make(bson.M, len(subs))
	for _, sub := range subs {
		set["submissions."+sub.UserID] = repo.submissionDoc(sub)
	}
	return set
}

func (repo assignmentRepository) PutSubmission(ctx context.Context, assignmentID string, sub assignment.Submission) error {
	return repo.update(ctx, assignmentID, repo.submissionsSet(sub), "saving submission")
}

func (repo assignmentRepository) PutSubmissions(ctx context.Context, assignmentID string, subs []assignment.Submission, report assignment.AIReport) error {
	set := repo.submissionsSet(subs...)
	set["ai_mark_scheme"] = report.MarkScheme
	set["ai_report"] = report.Summary
	return repo.update(ctx, assignmentID, set, "saving submissions")
}
