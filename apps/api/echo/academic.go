package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/academic"
	"github.com/trezcool/gradebook/core/user"
)

type academicApi struct {
	usrSvc   user.Service
	svc      academic.Service
	validate *validator.Validate
}

func registerAcademicAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	usrSvc user.Service,
	svc academic.Service,
	validate *validator.Validate,
) {
	api := academicApi{
		usrSvc:   usrSvc,
		svc:      svc,
		validate: validate,
	}
	authed := activeUserMiddleware(usrSvc)
	admin := adminMiddleware(usrSvc)

	g.GET("/class-levels", api.queryClassLevels, jwt, authed)

	tg := g.Group("/terms", jwt, authed)
	tg.GET("", api.queryTerms)
	tg.POST("", api.createTerm, admin)
	tg.GET("/current", api.currentTerm)
	tg.GET("/:id", api.retrieveTerm)
	tg.PUT("/:id/current", api.setCurrentTerm, admin)
	tg.DELETE("/:id", api.destroyTerm, admin)

	sg := g.Group("/subjects", jwt, authed)
	sg.GET("", api.querySubjects)
	sg.POST("", api.createSubject, admin)
	sg.GET("/:id", api.retrieveSubject)
	sg.DELETE("/:id", api.destroySubject, admin)

	stg := g.Group("/students", jwt, authed)
	stg.GET("", api.queryStudents)
	stg.POST("", api.createStudent, admin)
	stg.GET("/:id", api.retrieveStudent)
	stg.PUT("/:id", api.updateStudent, admin)
	stg.DELETE("/:id", api.destroyStudent, admin)

	ag := g.Group("/assignments", jwt, authed)
	ag.GET("", api.queryAssignments)
	ag.POST("", api.createAssignment, admin)
	ag.DELETE("/:id", api.destroyAssignment, admin)
}

func (api *academicApi) queryClassLevels(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, academic.ClassLevels)
}

// Terms

func (api *academicApi) queryTerms(ctx echo.Context) error {
	terms, err := api.svc.QueryTerms(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying terms")
	}
	if terms == nil {
		terms = []academic.Term{}
	}
	return ctx.JSON(http.StatusOK, terms)
}

func (api *academicApi) createTerm(ctx echo.Context) error {
	var data academic.NewTerm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTerm")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	term, err := api.svc.CreateTerm(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating term")
	}
	return ctx.JSON(http.StatusCreated, term)
}

func (api *academicApi) currentTerm(ctx echo.Context) error {
	term, err := api.svc.CurrentTerm(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "finding current term")
	}
	return ctx.JSON(http.StatusOK, term)
}

func (api *academicApi) retrieveTerm(ctx echo.Context) error {
	term, err := api.svc.GetTerm(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding term")
	}
	return ctx.JSON(http.StatusOK, term)
}

func (api *academicApi) setCurrentTerm(ctx echo.Context) error {
	term, err := api.svc.SetCurrentTerm(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "setting current term")
	}
	return ctx.JSON(http.StatusOK, term)
}

func (api *academicApi) destroyTerm(ctx echo.Context) error {
	if err := api.svc.DeleteTerm(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting term")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (api *academicApi) querySubjects(ctx echo.Context) error {
	level := core.CleanString(ctx.QueryParam("class_level"))
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), level)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []academic.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *academicApi) createSubject(ctx echo.Context) error {
	var data academic.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	subj, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *academicApi) retrieveSubject(ctx echo.Context) error {
	subj, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *academicApi) destroySubject(ctx echo.Context) error {
	if err := api.svc.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

func (api *academicApi) queryStudents(ctx echo.Context) error {
	var filter academic.StudentFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []academic.Student{})
	}
	filter.Clean()

	stds, err := api.svc.QueryStudents(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if stds == nil {
		stds = []academic.Student{}
	}
	return ctx.JSON(http.StatusOK, stds)
}

func (api *academicApi) createStudent(ctx echo.Context) error {
	var data academic.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *academicApi) retrieveStudent(ctx echo.Context) error {
	std, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *academicApi) updateStudent(ctx echo.Context) error {
	std, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student")
	}

	var data academic.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(std, api.validate); err != nil {
		return err
	}

	if std, err = api.svc.UpdateStudent(ctx.Request().Context(), std.ID, data); err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *academicApi) destroyStudent(ctx echo.Context) error {
	if err := api.svc.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Assignments

// queryAssignments lists every assignment to admins, and their own assignments to teachers.
func (api *academicApi) queryAssignments(ctx echo.Context) error {
	var filter academic.AssignmentFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []academic.Assignment{})
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if !ctxUsr.IsAdmin() {
		filter.TeacherID = ctxUsr.ID
	}

	asgs, err := api.svc.QueryAssignments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if asgs == nil {
		asgs = []academic.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *academicApi) createAssignment(ctx echo.Context) error {
	var data academic.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.Assign(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "assigning subject")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *academicApi) destroyAssignment(ctx echo.Context) error {
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
