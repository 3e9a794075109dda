package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"OptiFeed/internal/domain/models"
	"OptiFeed/internal/usecase"
	xhttp "OptiFeed/pkg/http"
	xlogger "OptiFeed/pkg/logger"
)

// MonitorEchoHandler exposes the monitor pipeline over HTTP.
type MonitorEchoHandler struct {
	logger  *xlogger.Logger
	monitor *usecase.Monitor
}

func NewMonitorEchoHandler(logger *xlogger.Logger, monitor *usecase.Monitor) *MonitorEchoHandler {
	return &MonitorEchoHandler{logger: logger, monitor: monitor}
}

func (h *MonitorEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/snapshot/summary", h.Summary)
	g.GET("/snapshot/history", h.History)
	g.GET("/options/top", h.TopOptions)
	g.PUT("/criteria", h.UpdateCriteria)
	g.POST("/export", h.Export)
	g.GET("/errors", h.Errors)
}

func (h *MonitorEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.HealthResponse{
		Status:       "ok",
		MonitorState: h.monitor.State().String(),
		HasSnapshot:  h.monitor.CurrentSnapshot() != nil,
	})
}

func (h *MonitorEchoHandler) Snapshot(c echo.Context) error {
	snap := h.monitor.CurrentSnapshot()
	if snap == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no snapshot published yet"))
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *MonitorEchoHandler) Summary(c echo.Context) error {
	snap := h.monitor.CurrentSnapshot()
	if snap == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no snapshot published yet"))
	}
	return xhttp.SuccessResponse(c, snap.Summary)
}

func (h *MonitorEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snaps := h.monitor.History(req.Count)
	overviews := make([]models.MarketOverview, 0, len(snaps))
	for _, s := range snaps {
		overviews = append(overviews, s.Overview)
	}
	return xhttp.ListResponse(c, overviews, int64(len(overviews)))
}

func (h *MonitorEchoHandler) TopOptions(c echo.Context) error {
	req := &models.TopOptionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap := h.monitor.CurrentSnapshot()
	if snap == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no snapshot published yet"))
	}

	// screened options arrive volume-ordered; top-n is a prefix
	n := req.Limit
	if n > len(snap.Options) {
		n = len(snap.Options)
	}
	return xhttp.ListResponse(c, snap.Options[:n], int64(len(snap.Options)))
}

func (h *MonitorEchoHandler) UpdateCriteria(c echo.Context) error {
	fields := map[string]any{}
	if err := c.Bind(&fields); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("malformed criteria body").WithError(err))
	}
	if len(fields) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("criteria body is empty"))
	}

	if err := h.monitor.UpdateCriteria(fields); err != nil {
		var cfgErr *models.ConfigError
		if errors.As(err, &cfgErr) {
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_INVALID_CRITERIA", cfgErr.Field, cfgErr.Reason, http.StatusBadRequest))
		}
		h.logger.Error("criteria update failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, h.monitor.Criteria())
}

func (h *MonitorEchoHandler) Export(c echo.Context) error {
	req := &models.ExportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	path, err := h.monitor.Export(req.Path)
	if err != nil {
		if errors.Is(err, models.ErrNoSnapshot) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no snapshot published yet"))
		}
		h.logger.Error("snapshot export failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("export failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, models.ExportResponse{Path: path})
}

func (h *MonitorEchoHandler) Errors(c echo.Context) error {
	req := &models.ErrorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.logger.RecentErrors(req.Count))
}
