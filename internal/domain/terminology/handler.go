package terminology

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/namaste-fhir/termservice/internal/domain/ingest"
	"github.com/namaste-fhir/termservice/internal/platform/fhir"
)

// Handler provides REST endpoints for the terminology service.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers terminology routes.
func (h *Handler) RegisterRoutes(e *echo.Echo, fhirGroup *echo.Group) {
	e.GET("/namaste/codesystem", h.GetCodeSystem)
	e.GET("/search", h.Search)
	fhirGroup.POST("/$translate", h.Translate)
}

// GetCodeSystem handles GET /namaste/codesystem.
func (h *Handler) GetCodeSystem(c echo.Context) error {
	cs, err := h.svc.CodeSystem()
	if err != nil {
		if errors.Is(err, ingest.ErrNotIngested) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("CodeSystem not ingested; run ingest first"))
		}
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, cs)
}

// Search handles GET /search?q=&limit=.
func (h *Handler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	results, err := h.svc.Search(c.Request().Context(), query, limit)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable,
			fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeTransient, err.Error()))
	}
	return c.JSON(http.StatusOK, SearchResponse{Matches: results})
}

// Translate handles POST /fhir/$translate. The request is a FHIR
// Parameters resource whose first parameter carries the source coding.
func (h *Handler) Translate(c echo.Context) error {
	var params fhir.Parameters
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("expected FHIR Parameters body"))
	}
	if len(params.Parameter) == 0 {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("expected Parameters with a parameter array"))
	}
	coding := params.Parameter[0].ValueCoding
	if coding == nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("expected valueCoding in first parameter"))
	}

	result, err := h.svc.Translate(c.Request().Context(), *coding)
	if err != nil {
		if errors.Is(err, ErrMissingCoding) {
			return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(
				fhir.IssueSeverityError, fhir.IssueTypeRequired, err.Error()))
		}
		return c.JSON(http.StatusServiceUnavailable,
			fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeTransient, err.Error()))
	}
	return c.JSON(http.StatusOK, result)
}
