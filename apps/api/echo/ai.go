package echoapi

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/feedback"
	"github.com/trezcool/darasa/core/user"
)

var (
	errUnreadableFile      = core.NewValidationError(errors.New("file cannot be read as text; upload a plain-text file"))
	errMissingReportFields = core.NewValidationError(errors.New("missing required fields: action and assignment_id"))
	errInvalidAssignmentID = core.NewValidationError(errors.New("invalid assignment ID"))
	errFileTooLarge        = core.NewValidationError(errors.New("file too large"))

	binaryExtensions = map[string]struct{}{".pdf": {}, ".doc": {}, ".docx": {}}
)

type (
	// AIRequest is bound from either a multipart form or a JSON body.
	AIRequest struct {
		Action     string `json:"action" form:"action"`
		Text       string `json:"text" form:"text"`
		Descriptor string `json:"descriptor" form:"descriptor"`
	}

	ReportRequest struct {
		Action       string `json:"action" form:"action"`
		AssignmentID string `json:"assignment_id" form:"assignment_id"`
		Text         string `json:"text" form:"text"`
	}

	SummaryResponse struct {
		Summary string `json:"summary"`
	}

	EvaluationResponse struct {
		Evaluation string `json:"evaluation"`
	}
)

type aiApi struct {
	conf     *core.Config
	svc      feedback.ServiceInterface
	asgmtSvc assignment.ServiceInterface
	usrSvc   user.ServiceInterface
}

func registerAIAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	conf *core.Config,
	svc feedback.ServiceInterface,
	asgmtSvc assignment.ServiceInterface,
	usrSvc user.ServiceInterface,
) {
	api := aiApi{
		conf:     conf,
		svc:      svc,
		asgmtSvc: asgmtSvc,
		usrSvc:   usrSvc,
	}

	ag := g.Group("/ai", jwt)
	ag.POST("", api.process)
	ag.POST("/generate-report", api.generateReport, teacherMiddleware())
}

// readUploadedText returns the content of the optional "file" part of a multipart request, as text.
func readUploadedText(ctx echo.Context, maxSize int64) (string, bool, error) {
	if !strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return "", false, nil
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "reading form file")
	}
	if _, ok := binaryExtensions[strings.ToLower(filepath.Ext(fh.Filename))]; ok {
		return "", false, errUnreadableFile
	}
	if maxSize > 0 && fh.Size > maxSize {
		return "", false, errFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", false, errors.Wrap(err, "opening form file")
	}
	defer f.Close()

	// one extra byte tells an oversized part from one filling the limit
	var r io.Reader = f
	if maxSize > 0 {
		r = io.LimitReader(f, maxSize+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", false, errors.Wrap(err, "reading form file")
	}
	if maxSize > 0 && int64(len(b)) > maxSize {
		return "", false, errFileTooLarge
	}
	if !utf8.Valid(b) {
		return "", false, errUnreadableFile
	}
	return string(b), true, nil
}

// Handlers

func (api *aiApi) process(ctx echo.Context) error {
	var data AIRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AIRequest")
	}

	content := data.Text
	text, ok, err := readUploadedText(ctx, api.conf.Storage.MaxUploadSize)
	if err != nil {
		return err
	}
	if ok {
		content = text
	}

	reqCtx := ctx.Request().Context()
	switch core.CleanString(data.Action, true) {
	case feedback.ActionSummarize:
		summary, err := api.svc.Summarize(reqCtx, content)
		if err != nil {
			return errors.Wrap(err, "summarizing")
		}
		return ctx.JSON(http.StatusOK, SummaryResponse{Summary: summary})
	case feedback.ActionEvaluate:
		evaluation, err := api.svc.Evaluate(reqCtx, data.Descriptor, content)
		if err != nil {
			return errors.Wrap(err, "evaluating")
		}
		return ctx.JSON(http.StatusOK, EvaluationResponse{Evaluation: evaluation})
	}
	return feedback.ErrInvalidAction
}

func (api *aiApi) generateReport(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data ReportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReportRequest")
	}
	data.Action = core.CleanString(data.Action, true)
	data.AssignmentID = core.CleanString(data.AssignmentID)

	if data.Action == "" || data.AssignmentID == "" {
		return errMissingReportFields
	}
	if data.Action != feedback.ActionEvaluate {
		return feedback.ErrInvalidAction
	}
	if !core.IsValidID(data.AssignmentID) {
		return errInvalidAssignmentID
	}

	markScheme := data.Text
	text, ok, err := readUploadedText(ctx, api.conf.Storage.MaxUploadSize)
	if err != nil {
		return err
	}
	if ok {
		markScheme += "\n" + text
	}

	report, err := api.asgmtSvc.GenerateAIFeedback(ctx.Request().Context(), actor, data.AssignmentID, core.CleanString(markScheme))
	if err != nil {
		return errors.Wrap(err, "generating report")
	}
	return ctx.JSON(http.StatusOK, report)
}
