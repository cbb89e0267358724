package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gradewise/gradewise/core/grading"
	"github.com/gradewise/gradewise/core/paper"
)

const (
	msgPaperUploaded  = "Paper uploaded successfully"
	msgGradingStarted = "Grading started successfully"
)

type (
	uploadResponse struct {
		Success    bool    `json:"success"`
		PaperID    string  `json:"paperId"`
		Message    string  `json:"message"`
		TotalMarks float64 `json:"totalMarks"`
	}

	startGradingRequest struct {
		PaperID string `json:"paperId" validate:"required,notblank"`
	}

	startGradingResponse struct {
		Success       bool   `json:"success"`
		PaperID       string `json:"paperId"`
		GradingID     string `json:"gradingId"`
		Message       string `json:"message"`
		EstimatedTime int    `json:"estimatedTime"` // seconds
	}

	dataResponse struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}
)

type paperApi struct {
	papers  *paper.Service
	grading *grading.Service
}

func registerPaperAPI(g *echo.Group, papers *paper.Service, gradingSvc *grading.Service) {
	api := paperApi{
		papers:  papers,
		grading: gradingSvc,
	}

	pg := g.Group("/papers")
	pg.POST("/upload", api.upload)
	pg.POST("/grade", api.startGrading)
	pg.GET("/grade/:gradingId", api.gradingProgress)
	pg.POST("/grade/:gradingId/cancel", api.cancelGrading)
	pg.GET("/:paperId", api.retrieve)
}

// Handlers

func (api *paperApi) upload(ctx echo.Context) error {
	var data paper.NewPaper
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPaper")
	}

	p, err := api.papers.Upload(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, uploadResponse{
		Success:    true,
		PaperID:    p.ID,
		Message:    msgPaperUploaded,
		TotalMarks: p.TotalMarks(),
	})
}

func (api *paperApi) startGrading(ctx echo.Context) error {
	var data startGradingRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to startGradingRequest")
	}
	if err := ctx.Validate(data); err != nil {
		return err
	}

	res, err := api.grading.Start(ctx.Request().Context(), data.PaperID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusAccepted, startGradingResponse{
		Success:       true,
		PaperID:       res.Job.PaperID,
		GradingID:     res.Job.ID,
		Message:       msgGradingStarted,
		EstimatedTime: int(res.EstimatedTime.Seconds()),
	})
}

func (api *paperApi) gradingProgress(ctx echo.Context) error {
	job, err := api.grading.Get(ctx.Request().Context(), ctx.Param("gradingId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dataResponse{Success: true, Data: job})
}

func (api *paperApi) cancelGrading(ctx echo.Context) error {
	job, err := api.grading.Cancel(ctx.Request().Context(), ctx.Param("gradingId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dataResponse{Success: true, Data: job})
}

func (api *paperApi) retrieve(ctx echo.Context) error {
	p, err := api.papers.GetByID(ctx.Request().Context(), ctx.Param("paperId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dataResponse{Success: true, Data: p})
}
