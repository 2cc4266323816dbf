package serverutils

import (
	"errors"

	"brainstorm-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusOf maps an error to the HTTP status returned to tool callers.
func StatusOf(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindInvalidInput:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindAlreadyAnswered:
		return fiber.StatusConflict
	case apperror.KindTimeout:
		return fiber.StatusRequestTimeout
	case apperror.KindEvaluatorContractViolation:
		return fiber.StatusBadGateway
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders any error as a failed tool response.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	return ctx.Status(StatusOf(err)).JSON(FailureResponse(err))
}

// ErrorHandlerMiddleware renders errors returned by the handlers below it.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return ErrorHandler(ctx, err)
		}
		return nil
	}
}
