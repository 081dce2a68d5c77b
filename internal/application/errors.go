package application

import (
	stderrors "errors"
	"strconv"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/errors"
)

// toAppError maps a domain error onto the AppError taxonomy, carrying the
// identifiers a caller needs to act on it. Errors that are not part of the
// domain taxonomy are returned unchanged.
func toAppError(err error) error {
	if err == nil || errors.IsAppError(err) {
		return err
	}

	var (
		notFound     *domain.NotFoundError
		validation   *domain.ValidationError
		insufficient *domain.InsufficientStockError
		capacity     *domain.CapacityExceededError
		unavailable  *domain.RobotUnavailableError
		unknownType  *domain.UnknownCommandTypeError
		conflict     *domain.TransactionConflictError
		transition   *domain.InvalidTransitionError
	)

	switch {
	case stderrors.As(err, &notFound):
		return errors.ErrNotFoundWithID(notFound.Resource, notFound.ID).Wrap(err)

	case stderrors.As(err, &validation):
		return errors.ErrValidationWithFields(validation.Error(), map[string]string{
			"field": validation.Field,
		}).Wrap(err)

	case stderrors.As(err, &insufficient):
		return errors.ErrInsufficientStock(insufficient.Error()).WithDetails(map[string]string{
			"itemId":    insufficient.ItemID,
			"requested": strconv.Itoa(insufficient.Requested),
			"available": strconv.Itoa(insufficient.Available),
			"shortfall": strconv.Itoa(insufficient.Shortfall),
		}).Wrap(err)

	case stderrors.As(err, &capacity):
		return errors.ErrCapacityExceeded(capacity.Error()).WithDetails(map[string]string{
			"binId":       capacity.BinID,
			"capacity":    strconv.Itoa(capacity.Capacity),
			"currentLoad": strconv.Itoa(capacity.CurrentLoad),
			"requested":   strconv.Itoa(capacity.Requested),
		}).Wrap(err)

	case stderrors.As(err, &unavailable):
		return errors.ErrRobotUnavailable(unavailable.Error()).WithDetails(map[string]string{
			"robotId": unavailable.RobotID,
			"status":  string(unavailable.Status),
		}).Wrap(err)

	case stderrors.As(err, &unknownType):
		return errors.ErrUnknownCommandType(unknownType.Error()).WithDetail("type", unknownType.Type).Wrap(err)

	case stderrors.As(err, &conflict):
		appErr := errors.ErrTransactionConflict(conflict.Error())
		if conflict.PlanID != "" {
			appErr.WithDetail("planId", conflict.PlanID)
		}
		if conflict.BinID != "" {
			appErr.WithDetail("binId", conflict.BinID).
				WithDetail("itemId", conflict.ItemID).
				WithDetail("requested", strconv.Itoa(conflict.Requested)).
				WithDetail("available", strconv.Itoa(conflict.Available))
		}
		if conflict.Sequence > 0 {
			appErr.WithDetail("sequence", strconv.Itoa(conflict.Sequence))
		}
		return appErr.Wrap(err)

	case stderrors.As(err, &transition):
		return errors.ErrInvalidTransition(transition.Error()).WithDetails(map[string]string{
			"entity": transition.Entity,
			"id":     transition.ID,
			"from":   transition.From,
			"to":     transition.To,
		}).Wrap(err)

	case stderrors.Is(err, domain.ErrAlreadyExists):
		return errors.ErrConflict(err.Error()).Wrap(err)

	case stderrors.Is(err, domain.ErrLockNotObtained):
		return errors.ErrConflict("resource is busy, retry later").Wrap(err)
	}

	return err
}
