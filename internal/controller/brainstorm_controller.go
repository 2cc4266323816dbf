package controller

import (
	"brainstorm-be/internal/dto"
	"brainstorm-be/internal/mapper"
	"brainstorm-be/internal/pkg/serverutils"
	"brainstorm-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IBrainstormController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	PushBranchQuestion(ctx *fiber.Ctx) error
	CompleteBranch(ctx *fiber.Ctx) error
	GetBranchStatus(ctx *fiber.Ctx) error
	GetSessionSummary(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
}

type brainstormController struct {
	brainstormService service.IBrainstormService
	mapper            *mapper.ToolMapper
	jwtSecret         string
}

func NewBrainstormController(brainstormService service.IBrainstormService, jwtSecret string) IBrainstormController {
	return &brainstormController{
		brainstormService: brainstormService,
		mapper:            mapper.NewToolMapper(),
		jwtSecret:         jwtSecret,
	}
}

func (c *brainstormController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/brainstorms/v1")
	h.Use(serverutils.HostSessionMiddleware(c.jwtSecret))
	h.Post("", c.Create)
	h.Post(":id/branches/:branchId/questions", c.PushBranchQuestion)
	h.Post(":id/branches/:branchId/complete", c.CompleteBranch)
	h.Get(":id/branches/:branchId", c.GetBranchStatus)
	h.Get(":id/summary", c.GetSessionSummary)
	h.Delete(":id", c.End)
}

func (c *brainstormController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateBrainstormRequest
	if err := parseBody(ctx, "create_brainstorm", &req); err != nil {
		return err
	}

	res, err := c.brainstormService.Create(ctx.UserContext(), serverutils.HostSessionID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse(c.mapper.CreateBrainstormText(req, *res), res))
}

func (c *brainstormController) PushBranchQuestion(ctx *fiber.Ctx) error {
	var req dto.PushBranchQuestionRequest
	if err := parseBody(ctx, "push_branch_question", &req); err != nil {
		return err
	}

	branchId := ctx.Params("branchId")
	res, err := c.brainstormService.PushBranchQuestion(ctx.UserContext(), ctx.Params("id"), branchId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse(c.mapper.PushBranchQuestionText(branchId, res.QuestionId), res))
}

func (c *brainstormController) CompleteBranch(ctx *fiber.Ctx) error {
	var req dto.CompleteBranchRequest
	if err := parseBody(ctx, "complete_branch", &req); err != nil {
		return err
	}

	branchId := ctx.Params("branchId")
	if err := c.brainstormService.CompleteBranch(ctx.UserContext(), ctx.Params("id"), branchId, &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse(c.mapper.CompleteBranchText(branchId, req.Finding), fiber.Map{"branch_id": branchId}))
}

func (c *brainstormController) GetBranchStatus(ctx *fiber.Ctx) error {
	res, err := c.brainstormService.GetBranchStatus(ctx.UserContext(), ctx.Params("id"), ctx.Params("branchId"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse(c.mapper.BranchStatusText(*res), res))
}

func (c *brainstormController) GetSessionSummary(ctx *fiber.Ctx) error {
	res, err := c.brainstormService.GetSessionSummary(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse(c.mapper.SummaryText(*res), res))
}

func (c *brainstormController) End(ctx *fiber.Ctx) error {
	res, err := c.brainstormService.End(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse(c.mapper.EndBrainstormText(*res), res))
}
