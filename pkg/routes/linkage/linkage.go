package linkage

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/linkage"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

// Handler serves linkage runs over HTTP
type Handler struct {
	logger      ectologger.Logger
	evaluator   *expressions.Evaluator
	workers     int
	defaultSpec *models.LinkageSpec
}

// NewHandler creates a linkage handler. defaultSpec, when set, serves
// requests that carry no spec of their own.
func NewHandler(logger ectologger.Logger, workers int, defaultSpec *models.LinkageSpec) *Handler {
	return &Handler{
		logger:      logger,
		evaluator:   expressions.NewEvaluator(),
		workers:     workers,
		defaultSpec: defaultSpec,
	}
}

// Register registers linkage routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/intra", h.LinkIntra)
	g.POST("/inter", h.LinkInter)
	g.POST("/score", h.ScorePair)
}

// IntraRequest deduplicates one record collection
type IntraRequest struct {
	Spec    *models.LinkageSpec `json:"spec,omitempty"`
	Records []any               `json:"records" validate:"required"`
}

// InterRequest links two record collections
type InterRequest struct {
	Spec  *models.LinkageSpec `json:"spec,omitempty"`
	Left  []any               `json:"left" validate:"required"`
	Right []any               `json:"right" validate:"required"`
}

// ScoreRequest scores a single record pair
type ScoreRequest struct {
	Spec  *models.LinkageSpec `json:"spec,omitempty"`
	Left  any                 `json:"left" validate:"required"`
	Right any                 `json:"right" validate:"required"`
}

// RunResponse wraps a linkage result
type RunResponse struct {
	BatchID string `json:"batch_id,omitempty"`
	*linkage.Result
}

// ScoreResponse is the score of one pair
type ScoreResponse struct {
	similarity.Score
	Match bool `json:"match"`
}

// LinkIntra deduplicates the request records
func (h *Handler) LinkIntra(c echo.Context) error {
	ctx := c.Request().Context()

	var req IntraRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := models.ValidateStruct(&req); err != nil {
		return err
	}

	linker, err := h.linker(req.Spec, models.LinkageModeIntra)
	if err != nil {
		return err
	}

	result, err := linker.LinkIntra(ctx, req.Records)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RunResponse{BatchID: fernctx.GetBatchID(ctx), Result: result})
}

// LinkInter links the left records to the right records
func (h *Handler) LinkInter(c echo.Context) error {
	ctx := c.Request().Context()

	var req InterRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := models.ValidateStruct(&req); err != nil {
		return err
	}

	linker, err := h.linker(req.Spec, models.LinkageModeInter)
	if err != nil {
		return err
	}

	result, err := linker.LinkInter(ctx, req.Left, req.Right)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RunResponse{BatchID: fernctx.GetBatchID(ctx), Result: result})
}

// ScorePair scores one pair without blocking
func (h *Handler) ScorePair(c echo.Context) error {
	var req ScoreRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := models.ValidateStruct(&req); err != nil {
		return err
	}

	linker, err := h.linker(req.Spec, "")
	if err != nil {
		return err
	}

	score, match, err := linker.Score(req.Left, req.Right)
	if err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, ScoreResponse{Score: score, Match: match})
}

// linker compiles the request spec, or the default one. A non-empty mode
// must match the spec's.
func (h *Handler) linker(spec *models.LinkageSpec, mode models.LinkageMode) (*linkage.Linker, error) {
	if spec == nil {
		spec = h.defaultSpec
	}
	if spec == nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "spec is required")
	}
	if mode != "" && spec.Mode != mode {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "spec mode "+string(spec.Mode)+" cannot serve a "+string(mode)+" run")
	}
	return linkage.Build(*spec, h.evaluator, h.workers, h.logger)
}
