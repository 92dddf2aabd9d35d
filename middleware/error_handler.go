package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/utils"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string             `json:"error"`
	Code      string             `json:"code,omitempty"`
	Conflicts map[string]string  `json:"conflicts,omitempty"`
	Details   []utils.FieldError `json:"details,omitempty"`
}

// ErrorHandler maps errors returned by handlers to a status code and an ErrorResponse.
// Unexpected errors are logged, reported to Sentry and hidden from the client.
func ErrorHandler(log *logrus.Entry) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := utils.AsAppError(err); ok {
			return c.Status(appErr.Status).JSON(ErrorResponse{
				Error:     appErr.Error(),
				Code:      appErr.Code,
				Conflicts: appErr.Conflicts,
				Details:   appErr.Details,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: fiberErr.Message})
		}

		utils.LogError(log, "unhandled_error", err, map[string]interface{}{
			"request_id": requestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
		})
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal server error"})
	}
}

func requestID(c *fiber.Ctx) string {
	reqID, _ := c.Locals("requestid").(string)
	if reqID == "" {
		reqID = c.Get(fiber.HeaderXRequestID)
	}
	return reqID
}
