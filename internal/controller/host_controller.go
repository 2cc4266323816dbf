package controller

import (
	"fmt"

	"brainstorm-be/internal/dto"
	"brainstorm-be/pkg/events"
	"brainstorm-be/internal/pkg/serverutils"
	"brainstorm-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHostController interface {
	RegisterRoutes(r fiber.Router)
	Event(ctx *fiber.Ctx) error
}

type hostController struct {
	lifecycleService service.ILifecycleService
}

func NewHostController(lifecycleService service.ILifecycleService) IHostController {
	return &hostController{
		lifecycleService: lifecycleService,
	}
}

func (c *hostController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/host/v1")
	h.Post("events", c.Event)
}

// Event accepts host lifecycle notifications. Types other than
// session.deleted are acknowledged and ignored.
func (c *hostController) Event(ctx *fiber.Ctx) error {
	var req dto.HostEventRequest
	if err := parseBody(ctx, "host_event", &req); err != nil {
		return err
	}

	res := dto.HostEventResponse{}
	if req.Type == events.TypeHostSessionDeleted && req.Properties.Info.Id != "" {
		ended, err := c.lifecycleService.HostSessionDeleted(ctx.UserContext(), req.Properties.Info.Id)
		if err != nil {
			return err
		}
		res.Ended = ended
	}

	return ctx.JSON(serverutils.ToolResponse(fmt.Sprintf("Ended %d session(s).", res.Ended), res))
}
