package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxQuestionLength int
	Logger            *zap.Logger
}

// QueryMiddleware enforces the question rules on the query endpoints: the
// question must be present, valid UTF-8 and at most MaxQuestionLength
// characters after trimming. The sanitized body is stored in locals for the
// handler.
func QueryMiddleware(cfg Config) fiber.Handler {
	if cfg.MaxQuestionLength == 0 {
		cfg.MaxQuestionLength = 500
	}

	return func(c *fiber.Ctx) error {
		var req map[string]interface{}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		question, ok := req["question"].(string)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Question is required and must be a string",
			})
		}

		question = sanitizeString(question)
		if question == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Question must not be empty",
			})
		}

		if !utf8.ValidString(question) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Question must be valid UTF-8",
			})
		}

		if utf8.RuneCountInString(question) > cfg.MaxQuestionLength {
			cfg.Logger.Warn("Question exceeds maximum length",
				zap.String("ip", c.IP()),
				zap.Int("length", utf8.RuneCountInString(question)),
			)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Question exceeds maximum length",
			})
		}

		req["question"] = question
		c.Locals("sanitized_body", req)

		return c.Next()
	}
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
