package bundle

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/namaste-fhir/termservice/internal/platform/fhir"
)

// Handler exposes bundle validation over REST.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the bundle intake route.
func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	fhirGroup.POST("/Bundle", h.Validate)
}

// Validate handles POST /fhir/Bundle.
func (h *Handler) Validate(c echo.Context) error {
	var b fhir.Bundle
	if err := c.Bind(&b); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(
			fhir.IssueSeverityError, fhir.IssueTypeStructure, "expected FHIR Bundle body"))
	}

	result, err := h.svc.Validate(c.Request().Context(), &b)
	if err != nil {
		if errors.Is(err, ErrNotBundle) {
			return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(
				fhir.IssueSeverityError, fhir.IssueTypeStructure, err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, result)
}
