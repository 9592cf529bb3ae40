package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core/review"
)

type evaluationApi struct {
	svc review.Service
}

// registerEvaluationAPI mounts the evaluator-facing surface. There is no JWT
// here: the credential token in the URL is the whole authentication.
func registerEvaluationAPI(g *echo.Group, svc review.Service) {
	api := evaluationApi{svc: svc}

	g.GET("/rubric", api.rubric)

	eg := g.Group("/evaluate/:token")
	eg.GET("", api.worklist)
	eg.POST("/obligations/:id", api.submit)
}

// Handlers

func (api *evaluationApi) rubric(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Rubric())
}

func (api *evaluationApi) worklist(ctx echo.Context) error {
	wl, err := api.svc.Worklist(reqCtx(ctx), ctx.Param("token"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, wl)
}

func (api *evaluationApi) submit(ctx echo.Context) error {
	var data review.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}

	ob, err := api.svc.Submit(reqCtx(ctx), ctx.Param("token"), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ob)
}
