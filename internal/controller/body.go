package controller

import (
	"brainstorm-be/internal/pkg/serverutils"
	"brainstorm-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// parseBody binds and validates a JSON body.
func parseBody(ctx *fiber.Ctx, op string, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return apperror.InvalidInput(op, "", "malformed request body: "+err.Error())
	}
	return serverutils.ValidateRequest(req)
}
