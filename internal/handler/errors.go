package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/middleware"
	"github.com/hama-community/welfare/internal/model"
	"github.com/hama-community/welfare/internal/repository"
	"github.com/hama-community/welfare/internal/service"
	"github.com/hama-community/welfare/internal/utils"
)

var statusByError = []struct {
	err    error
	status int
}{
	{model.ErrInvalidProviderType, http.StatusBadRequest},
	{model.ErrInvalidBenefitType, http.StatusBadRequest},
	{model.ErrInvalidDiscount, http.StatusBadRequest},
	{model.ErrUnexpectedDiscount, http.StatusBadRequest},
	{model.ErrInvalidStatus, http.StatusBadRequest},
	{model.ErrInvalidDate, http.StatusBadRequest},
	{model.ErrNegativeAmount, http.StatusBadRequest},
	{model.ErrMetadataMismatch, http.StatusBadRequest},
	{service.ErrInvalidPeriod, http.StatusBadRequest},
	{service.ErrNothingToUpdate, http.StatusBadRequest},
	{service.ErrInvalidFamilyStatus, http.StatusBadRequest},
	{service.ErrReasonRequired, http.StatusUnprocessableEntity},
	{service.ErrReasonInactive, http.StatusUnprocessableEntity},
	{service.ErrProviderNotEligible, http.StatusUnprocessableEntity},
	{service.ErrProviderNotFound, http.StatusNotFound},
	{service.ErrFamilyNotFound, http.StatusNotFound},
	{repository.ErrNotFound, http.StatusNotFound},
	{service.ErrOutOfScope, http.StatusForbidden},
	{repository.ErrForbidden, http.StatusForbidden},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrNeighborhoodMismatch, http.StatusConflict},
	{service.ErrCancelledRecord, http.StatusConflict},
	{service.ErrNotDeletable, http.StatusConflict},
	{service.ErrFamilyInUse, http.StatusConflict},
	{service.ErrFamilyNumberTaken, http.StatusConflict},
	{repository.ErrConflict, http.StatusConflict},
	{repository.ErrDuplicate, http.StatusConflict},
}

// respondError translates a domain error into an HTTP status and a
// {"error": ...} body.  Unknown errors are logged and reported as 500.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var verr *utils.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
	}
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			msg := err.Error()
			if errors.Is(err, repository.ErrConflict) {
				msg = "benefit was changed by someone else, reload and retry"
			}
			return c.JSON(m.status, echo.Map{"error": msg})
		}
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func actorFrom(c echo.Context) service.Actor {
	id, _ := middleware.CurrentIdentity(c)
	return service.Actor{UserID: id.UserID, Role: id.Role, NeighborhoodID: id.NeighborhoodID}
}

// queryInt parses an optional integer query parameter; missing means 0.
func queryInt(c echo.Context, name string) (int, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &utils.ValidationError{Fields: []string{name + " must be a number"}}
	}
	return n, nil
}
