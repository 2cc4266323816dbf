package controller

import (
	"brainstorm-be/internal/dto"
	"brainstorm-be/internal/mapper"
	"brainstorm-be/internal/pkg/serverutils"
	"brainstorm-be/internal/service"
	"brainstorm-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	PushQuestion(ctx *fiber.Ctx) error
	GetNextAnswer(ctx *fiber.Ctx) error
	GetAnswer(ctx *fiber.Ctx) error
	ListQuestions(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
}

type sessionController struct {
	questionService service.IQuestionService
	mapper          *mapper.ToolMapper
	jwtSecret       string
}

func NewSessionController(questionService service.IQuestionService, jwtSecret string) ISessionController {
	return &sessionController{
		questionService: questionService,
		mapper:          mapper.NewToolMapper(),
		jwtSecret:       jwtSecret,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions/v1")
	h.Use(serverutils.HostSessionMiddleware(c.jwtSecret))
	h.Post("", c.Start)
	h.Post(":id/questions", c.PushQuestion)
	h.Get(":id/answers/next", c.GetNextAnswer)
	h.Get(":id/answers/:questionId", c.GetAnswer)
	h.Get(":id/questions", c.ListQuestions)
	h.Delete(":id", c.End)
}

func (c *sessionController) Start(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	// body is optional
	if len(ctx.Body()) > 0 {
		if err := parseBody(ctx, "start_session", &req); err != nil {
			return err
		}
	}

	res, err := c.questionService.StartSession(ctx.UserContext(), serverutils.HostSessionID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse("Session started. **Session ID:** "+res.SessionId, res))
}

func (c *sessionController) PushQuestion(ctx *fiber.Ctx) error {
	var req dto.PushQuestionRequest
	if err := parseBody(ctx, "push_question", &req); err != nil {
		return err
	}

	res, err := c.questionService.PushQuestion(ctx.UserContext(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse(c.mapper.PushQuestionText(res.QuestionId, req.Type), res))
}

func (c *sessionController) waitQuery(ctx *fiber.Ctx, op string) (dto.WaitQuery, error) {
	var q dto.WaitQuery
	if err := ctx.QueryParser(&q); err != nil {
		return q, apperror.InvalidInput(op, ctx.Params("id"), "malformed query: "+err.Error())
	}
	return q, serverutils.ValidateRequest(q)
}

func (c *sessionController) GetNextAnswer(ctx *fiber.Ctx) error {
	q, err := c.waitQuery(ctx, "get_next_answer")
	if err != nil {
		return err
	}

	res, err := c.questionService.GetNextAnswer(ctx.UserContext(), ctx.Params("id"), q)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse(c.mapper.AnswerText(*res), res))
}

func (c *sessionController) GetAnswer(ctx *fiber.Ctx) error {
	q, err := c.waitQuery(ctx, "get_answer")
	if err != nil {
		return err
	}

	res, err := c.questionService.GetAnswer(ctx.UserContext(), ctx.Params("id"), ctx.Params("questionId"), q)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse(c.mapper.AnswerText(*res), res))
}

func (c *sessionController) ListQuestions(ctx *fiber.Ctx) error {
	res, err := c.questionService.ListQuestions(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse(c.mapper.QuestionListText(res), res))
}

func (c *sessionController) End(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.questionService.EndSession(ctx.UserContext(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.ToolResponse("Session "+id+" ended.", fiber.Map{"session_id": id}))
}
