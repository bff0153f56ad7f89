package conceptmap

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/namaste-fhir/termservice/internal/platform/fhir"
)

// Handler serves the last synthesized ConceptMap.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/namaste/conceptmap", h.GetConceptMap)
}

// GetConceptMap handles GET /namaste/conceptmap.
func (h *Handler) GetConceptMap(c echo.Context) error {
	cm, err := h.svc.ConceptMap()
	if err != nil {
		if errors.Is(err, ErrNotSynthesized) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("ConceptMap not synthesized; run sync-conceptmap first"))
		}
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, cm)
}
