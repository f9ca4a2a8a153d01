package fusion

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/fusion"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Handler serves fusion over HTTP
type Handler struct {
	logger      ectologger.Logger
	workers     int
	defaultSpec *models.FusionSpec
}

// NewHandler creates a fusion handler. defaultSpec, when set, serves
// requests that carry no spec of their own.
func NewHandler(logger ectologger.Logger, workers int, defaultSpec *models.FusionSpec) *Handler {
	return &Handler{
		logger:      logger,
		workers:     workers,
		defaultSpec: defaultSpec,
	}
}

// Register registers fusion routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.FuseCluster)
	g.POST("/clusters", h.FuseClusters)
	g.GET("/rules", h.ListRules)
}

// FuseRequest fuses one cluster. With a field set, the rule configured for
// that field is applied to the values as a whole.
type FuseRequest struct {
	Spec    *models.FusionSpec `json:"spec,omitempty"`
	Field   string             `json:"field,omitempty"`
	Values  []any              `json:"values" validate:"required"`
	Weights []float64          `json:"weights,omitempty"`
}

// FuseResponse is a fused value
type FuseResponse struct {
	Value any `json:"value"`
}

// ClustersRequest fuses many independent clusters
type ClustersRequest struct {
	Spec     *models.FusionSpec `json:"spec,omitempty"`
	Clusters []models.Cluster   `json:"clusters" validate:"required,dive"`
}

// ClustersResponse holds one result per cluster, in request order
type ClustersResponse struct {
	BatchID string                `json:"batch_id,omitempty"`
	Results []fusion.FusedCluster `json:"results"`
}

// FuseCluster fuses the request values
func (h *Handler) FuseCluster(c echo.Context) error {
	var req FuseRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := models.ValidateStruct(&req); err != nil {
		return err
	}

	engine, err := h.engine(req.Spec)
	if err != nil {
		return err
	}

	var fused any
	if req.Field != "" {
		weights := req.Weights
		if weights == nil {
			weights = fusion.UniformWeights(len(req.Values))
		}
		fused, err = engine.FuseWith(req.Field, req.Values, weights)
	} else {
		fused, err = engine.FuseCluster(req.Values, req.Weights)
	}
	if err != nil {
		return fuseError(err)
	}
	return c.JSON(http.StatusOK, FuseResponse{Value: fused})
}

// FuseClusters fuses every cluster of the request
func (h *Handler) FuseClusters(c echo.Context) error {
	ctx := c.Request().Context()

	var req ClustersRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := models.ValidateStruct(&req); err != nil {
		return err
	}

	engine, err := h.engine(req.Spec)
	if err != nil {
		return err
	}

	results, err := engine.FuseClusters(ctx, req.Clusters)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ClustersResponse{BatchID: fernctx.GetBatchID(ctx), Results: results})
}

// ListRules lists the registered fusion rule names
func (h *Handler) ListRules(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"rules": fusion.Names()})
}

func (h *Handler) engine(spec *models.FusionSpec) (*fusion.Engine, error) {
	if spec == nil {
		spec = h.defaultSpec
	}
	if spec == nil {
		// no spec at all fuses with the default rule
		spec = &models.FusionSpec{}
	}
	return fusion.Build(*spec, h.workers, h.logger)
}

func fuseError(err error) error {
	if errors.Is(err, fusion.ErrWeightCount) || errors.Is(err, fusion.ErrInvalidWeight) {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
}
