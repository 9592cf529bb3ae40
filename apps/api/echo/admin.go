package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/person"
	"github.com/trezcool/tathmini/core/review"
)

type adminApi struct {
	personSvc person.Service
	reviewSvc review.Service
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, personSvc person.Service, reviewSvc review.Service) {
	api := adminApi{
		personSvc: personSvc,
		reviewSvc: reviewSvc,
	}

	ag := g.Group("/admin")

	// un-authed endpoints
	ag.POST("/login", api.login)

	// authed endpoints
	authed := ag.Group("", jwt, adminMiddleware())

	pg := authed.Group("/people")
	pg.POST("", api.personCreate)
	pg.GET("", api.personQuery)
	pg.GET("/:id", api.personRetrieve)
	pg.PUT("/:id", api.personUpdate)
	pg.DELETE("/:id", api.personDeactivate)

	prg := authed.Group("/periods")
	prg.POST("", api.periodCreate)
	prg.GET("", api.periodQuery)
	prg.GET("/:id", api.periodRetrieve)
	prg.POST("/:id/activate", api.periodActivate)
	prg.POST("/:id/deactivate", api.periodDeactivate)
	prg.GET("/:id/credentials", api.periodCredentials)
	prg.GET("/:id/stats", api.periodStats)
	prg.GET("/:id/reports/:personID", api.periodReport)
}

// Handlers

func (api *adminApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticateAdmin(data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *adminApi) personCreate(ctx echo.Context) error {
	var data person.NewPerson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPerson")
	}
	if err := data.Validate(api.personSvc); err != nil {
		return err
	}

	p, err := api.personSvc.Create(reqCtx(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating person")
	}

	return ctx.JSON(http.StatusCreated, p)
}

func (api *adminApi) personQuery(ctx echo.Context) error {
	filter := new(person.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []person.Person{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	people, err := api.personSvc.Query(reqCtx(ctx), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying people")
	}
	if people == nil {
		people = []person.Person{}
	}
	return ctx.JSON(http.StatusOK, people)
}

func (api *adminApi) personRetrieve(ctx echo.Context) error {
	p, err := api.personSvc.GetByID(reqCtx(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *adminApi) personUpdate(ctx echo.Context) error {
	p, err := api.personSvc.GetByID(reqCtx(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data person.UpdatePerson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePerson")
	}
	if err := data.Validate(p); err != nil {
		return err
	}

	p, err = api.personSvc.Update(reqCtx(ctx), p.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating person")
	}

	return ctx.JSON(http.StatusOK, p)
}

func (api *adminApi) personDeactivate(ctx echo.Context) error {
	if _, err := api.personSvc.Deactivate(reqCtx(ctx), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) periodCreate(ctx echo.Context) error {
	var data review.NewPeriod
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPeriod")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.reviewSvc.CreatePeriod(reqCtx(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating period")
	}

	return ctx.JSON(http.StatusCreated, p)
}

func (api *adminApi) periodQuery(ctx echo.Context) error {
	periods, err := api.reviewSvc.QueryPeriods(reqCtx(ctx))
	if err != nil {
		return errors.Wrap(err, "querying periods")
	}
	if periods == nil {
		periods = []review.Period{}
	}
	return ctx.JSON(http.StatusOK, periods)
}

func (api *adminApi) periodRetrieve(ctx echo.Context) error {
	p, err := api.reviewSvc.GetPeriod(reqCtx(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *adminApi) periodActivate(ctx echo.Context) error {
	act, err := api.reviewSvc.ActivatePeriod(reqCtx(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *adminApi) periodDeactivate(ctx echo.Context) error {
	p, err := api.reviewSvc.DeactivatePeriod(reqCtx(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *adminApi) periodCredentials(ctx echo.Context) error {
	progress, err := api.reviewSvc.CredentialProgress(reqCtx(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	if progress == nil {
		progress = []review.CredentialProgress{}
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *adminApi) periodStats(ctx echo.Context) error {
	stats, err := api.reviewSvc.CompletionStats(reqCtx(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *adminApi) periodReport(ctx echo.Context) error {
	report, err := api.reviewSvc.Report(reqCtx(ctx), ctx.Param("id"), ctx.Param("personID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

type (
	LoginRequest struct {
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate() error {
	return core.Validate.Struct(lr)
}
