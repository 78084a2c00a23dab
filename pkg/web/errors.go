package web

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

// NotFoundHandler renders unknown routes as problem documents.
func NotFoundHandler(c fiber.Ctx) error {
	return notFound(c, "route "+c.Method()+" "+c.Path()+" does not exist")
}

// ErrorHandler renders errors escaping handlers as RFC 7807 problems.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		problem := problems.NewStatusProblem(code).
			WithInstance(c.Path())

		if code >= fiber.StatusInternalServerError {
			logger.ErrorContext(c.Context(), "Unhandled request error", "path", c.Path(), "error", err)
			problem = problem.WithType("internal_error").WithDetail("internal server error")
		} else {
			problem = problem.WithType("request_error").WithDetail(err.Error())
		}

		return c.Status(code).JSON(problem, problems.ProblemMediaType)
	}
}
