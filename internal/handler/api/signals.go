package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/service/ratelimit"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/backtest"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/calibration"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/usecase"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/cache"
	xhttp "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/http"
	xlogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

type Evaluator interface {
	Evaluate(ctx context.Context, snap models.Snapshot, opts usecase.PipelineOptions) (models.Decision, error)
}

type CycleService interface {
	Run(ctx context.Context, symbol string) (models.Decision, error)
	Process(ctx context.Context, snap models.Snapshot) (models.Decision, error)
	Options() usecase.PipelineOptions
}

type Backtester interface {
	Run(ctx context.Context, symbol, start, end string, cfg models.BacktestConfig) (models.BacktestResult, []models.BacktestTrade, error)
}

type OutcomeStats interface {
	CalibrationSamples(ctx context.Context, symbol string, lookbackDays int) ([]models.CalibrationSample, error)
	RecentPerformance(ctx context.Context, symbol string, lookbackDays int) (models.Performance, error)
}

// BacktestResponse is the body of GET /api/backtest.
type BacktestResponse struct {
	Result models.BacktestResult  `json:"result"`
	Trades []models.BacktestTrade `json:"trades"`
}

// SignalsHandler serves evaluation, live cycles, calibration and the
// read-only signal views.
type SignalsHandler struct {
	logger    *xlogger.Logger
	pipeline  Evaluator
	cycles    CycleService
	backtests Backtester
	outcomes  OutcomeStats
	decisions usecase.DecisionCache
	limiter   *ratelimit.Limiter
	now       func() time.Time
}

func NewSignalsHandler(
	logger *xlogger.Logger,
	pipeline Evaluator,
	cycles CycleService,
	backtests Backtester,
	outcomes OutcomeStats,
	decisions usecase.DecisionCache,
	limiter *ratelimit.Limiter,
) *SignalsHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if limiter == nil {
		limiter = ratelimit.New(0, 1)
	}
	return &SignalsHandler{
		logger:    logger,
		pipeline:  pipeline,
		cycles:    cycles,
		backtests: backtests,
		outcomes:  outcomes,
		decisions: decisions,
		limiter:   limiter,
		now:       time.Now,
	}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/evaluate", h.Evaluate)
	g.POST("/cycle", h.Cycle)
	g.POST("/calibrate", h.Calibrate)
	g.GET("/backtest", h.Backtest)
	g.GET("/signals/latest", h.Latest)
	g.GET("/performance", h.Performance)
}

func (h *SignalsHandler) Evaluate(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if len(req.Rows) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("rows are required").WithParam("field", "rows"))
	}

	snap := models.Snapshot{Symbol: req.Symbol, Spot: req.Spot, SnapshotTime: req.SnapshotTime, Rows: req.Rows}
	if snap.SnapshotTime.IsZero() {
		snap.SnapshotTime = h.now()
	}

	var (
		d   models.Decision
		err error
	)
	if req.Persist {
		d, err = h.cycles.Process(c.Request().Context(), snap)
	} else {
		d, err = h.pipeline.Evaluate(c.Request().Context(), snap, h.cycles.Options())
	}
	if err != nil {
		h.logger.Error("evaluate error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, cycleError(err))
	}
	return xhttp.SuccessResponse(c, d)
}

func (h *SignalsHandler) Cycle(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow(c.RealIP() + ":cycle") {
		h.logger.Warn("cycle rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many cycle requests"))
	}

	d, err := h.cycles.Run(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("cycle error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, cycleError(err))
	}
	return xhttp.SuccessResponse(c, d)
}

func cycleError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrCycleBusy):
		return xhttp.ConflictError("a cycle is already running for this symbol").WithError(err)
	case errors.Is(err, usecase.ErrNoChain):
		return xhttp.NotFoundError("no option chain available").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("cycle timed out").WithError(err)
	}
	return xhttp.InternalError("cycle failed").WithError(err)
}

// Calibrate uses the posted samples, or the stored ones for symbol when none
// are posted.
func (h *SignalsHandler) Calibrate(c echo.Context) error {
	req := &models.CalibrateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	samples := req.Samples
	if len(samples) == 0 {
		if req.Symbol == "" {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("samples or symbol is required"))
		}
		var err error
		samples, err = h.outcomes.CalibrationSamples(c.Request().Context(), req.Symbol, req.LookbackDays)
		if err != nil {
			h.logger.Error("calibration samples error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("could not load calibration samples").WithError(err))
		}
	}
	return xhttp.SuccessResponse(c, calibration.Calibrate(req.RawProbability, samples, req.MinSamples))
}

func (h *SignalsHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow(c.RealIP() + ":backtest") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many backtest requests"))
	}

	res, trades, err := h.backtests.Run(c.Request().Context(), req.Symbol, req.StartDate, req.EndDate, req.Config())
	if err != nil {
		if errors.Is(err, backtest.ErrDateRange) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("end_date must not precede start_date").WithError(err))
		}
		h.logger.Error("backtest error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("backtest failed").WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, BacktestResponse{Result: res, Trades: trades})
}

func (h *SignalsHandler) Latest(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	d, err := h.decisions.LatestDecision(c.Request().Context(), req.Symbol)
	if errors.Is(err, cache.ErrCacheMiss) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no decision for %s yet", req.Symbol))
	}
	if err != nil {
		h.logger.Error("latest decision error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not read latest decision").WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, d)
}

func (h *SignalsHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	perf, err := h.outcomes.RecentPerformance(c.Request().Context(), req.Symbol, req.LookbackDays)
	if err != nil {
		h.logger.Error("performance error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not load performance").WithError(err))
	}
	return xhttp.SuccessResponse(c, perf)
}

var _ xhttp.Handler = (*SignalsHandler)(nil)
