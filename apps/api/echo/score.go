package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/score"
	"github.com/trezcool/gradebook/core/user"
)

const formatCSV = "csv"

type scoreApi struct {
	usrSvc   user.Service
	svc      score.Service
	validate *validator.Validate
}

func registerScoreAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	usrSvc user.Service,
	svc score.Service,
	validate *validator.Validate,
) {
	api := scoreApi{
		usrSvc:   usrSvc,
		svc:      svc,
		validate: validate,
	}
	authed := activeUserMiddleware(usrSvc)
	admin := adminMiddleware(usrSvc)

	sg := g.Group("/scores", jwt, authed)
	sg.GET("", api.query)
	sg.POST("", api.enter)
	sg.DELETE("", api.destroyMultiple, admin)

	bg := g.Group("/broadsheets", jwt, authed)
	bg.GET("", api.broadsheet)
	bg.POST("/mail", api.mailBroadsheet, admin)

	gg := g.Group("/grading", jwt, authed)
	gg.GET("/scale", api.scale)
	gg.POST("/aggregate", api.aggregate)
}

func (api *scoreApi) query(ctx echo.Context) error {
	var filter score.Filter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []score.Score{})
	}
	filter.Clean()

	scores, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying scores")
	}
	if scores == nil {
		scores = []score.Score{}
	}
	return ctx.JSON(http.StatusOK, scores)
}

func (api *scoreApi) enter(ctx echo.Context) error {
	var data score.ScoreBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreBatch")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	scores, err := api.svc.Enter(ctx.Request().Context(), ctxUsr, data.Entries)
	if err != nil {
		return errors.Wrap(err, "entering scores")
	}
	return ctx.JSON(http.StatusCreated, scores)
}

func (api *scoreApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting scores")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// broadsheet renders as JSON, or as a CSV download with `?format=csv`.
func (api *scoreApi) broadsheet(ctx echo.Context) error {
	var query score.BroadsheetQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to BroadsheetQuery")
	}
	if err := query.Validate(api.validate); err != nil {
		return err
	}

	bs, err := api.svc.Broadsheet(ctx.Request().Context(), query.TermID, query.ClassLevel)
	if err != nil {
		return errors.Wrap(err, "building broadsheet")
	}

	if ctx.QueryParam("format") != formatCSV {
		return ctx.JSON(http.StatusOK, bs)
	}

	var buff bytes.Buffer
	if err = score.WriteBroadsheetCSV(&buff, bs); err != nil {
		return errors.Wrap(err, "writing broadsheet csv")
	}
	ctx.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", score.BroadsheetFilename(bs)),
	)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buff.Bytes())
}

func (api *scoreApi) mailBroadsheet(ctx echo.Context) error {
	var data MailBroadsheetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MailBroadsheetRequest")
	}
	to, err := data.Validate(api.validate)
	if err != nil {
		return err
	}

	if err = api.svc.MailBroadsheet(ctx.Request().Context(), data.TermID, data.ClassLevel, to...); err != nil {
		return errors.Wrap(err, "mailing broadsheet")
	}
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "The broadsheet will be sent shortly."})
}

func (api *scoreApi) scale(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Scale().Bands())
}

// aggregate previews the total and grade of a pair of components, without storing anything.
func (api *scoreApi) aggregate(ctx echo.Context) error {
	var data AggregateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AggregateRequest")
	}

	agg, err := grading.Aggregate(data.ClassScore, data.ExamScore, api.svc.Scale())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AggregateResponse{
		Aggregation: agg,
		Description: api.svc.Scale().Classify(agg.Total).Description,
	})
}

type (
	MailBroadsheetRequest struct {
		TermID     string   `json:"term_id"`
		ClassLevel string   `json:"class_level" validate:"required"`
		Recipients []string `json:"recipients" validate:"required,min=1,dive,email"`
	}

	AggregateRequest struct {
		ClassScore int `json:"class_score"`
		ExamScore  int `json:"exam_score"`
	}

	AggregateResponse struct {
		grading.Aggregation
		Description string `json:"description"`
	}
)

func (mr *MailBroadsheetRequest) Validate(validate *validator.Validate) ([]mail.Address, error) {
	mr.TermID = core.CleanString(mr.TermID, true /* lower */)
	mr.ClassLevel = core.CleanString(mr.ClassLevel)
	for i := range mr.Recipients {
		mr.Recipients[i] = core.CleanString(mr.Recipients[i], true /* lower */)
	}
	if err := validate.Struct(mr); err != nil {
		return nil, err
	}

	to := make([]mail.Address, 0, len(mr.Recipients))
	for _, r := range mr.Recipients {
		to = append(to, mail.Address{Address: r})
	}
	return to, nil
}
