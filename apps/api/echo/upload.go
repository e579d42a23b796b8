package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/services/filestore"
)

var errNoFile = core.NewValidationError(errors.New("no file provided"))

type UploadResponse struct {
	FileURL     string `json:"file_url"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type uploadApi struct {
	store filestore.Store
}

func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config, store filestore.Store) {
	api := uploadApi{store: store}

	mw := []echo.MiddlewareFunc{jwt}
	if conf.Storage.MaxUploadSize > 0 {
		mw = append(mw, middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			Limit: strconv.FormatInt(conf.Storage.MaxUploadSize, 10),
		}))
	}
	g.POST("/upload", api.upload, mw...)
}

func (api *uploadApi) upload(ctx echo.Context) error {
	if !strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return errNoFile
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			return errNoFile
		}
		return errors.Wrap(err, "reading form file")
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening form file")
	}
	defer f.Close()

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	stored, err := api.store.Save(ctx.Request().Context(), fh.Filename, contentType, f)
	if err != nil {
		return errors.Wrap(err, "saving upload")
	}

	return ctx.JSON(http.StatusOK, UploadResponse{
		FileURL:     stored.URL,
		FileName:    stored.OriginalName,
		ContentType: stored.ContentType,
		Size:        stored.Size,
	})
}
