package httpapi

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/forecast-text-service/internal/failure"
)

const timestampLayout = "2006-01-02T15:04:05.000000"

// errorResponse is the envelope for every non-2xx response.
type errorResponse struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

type errorMapping struct {
	status  int
	label   string
	message string // empty means use the error's own message
}

// errorTable is the only place failure kinds become HTTP statuses.
var errorTable = map[failure.Kind]errorMapping{
	failure.KindInvalidArgument: {
		status: fiber.StatusBadRequest,
		label:  utils.StatusMessage(fiber.StatusBadRequest),
	},
	failure.KindUpstream: {
		status:  fiber.StatusBadGateway,
		label:   "Upstream API Unreachable",
		message: "Connection to the upstream is unreachable",
	},
	failure.KindInternal: {
		status:  fiber.StatusInternalServerError,
		label:   utils.StatusMessage(fiber.StatusInternalServerError),
		message: "An unexpected error occurred",
	},
}

// ErrorHandler renders err as an errorResponse. Causes are logged, never returned.
func ErrorHandler(c *fiber.Ctx, err error) error {
	resp := errorResponse{
		Timestamp: time.Now().Format(timestampLayout),
		Path:      c.Path(),
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		resp.Status = fe.Code
		resp.Error = utils.StatusMessage(fe.Code)
		resp.Message = fe.Message
		log.Printf("ERROR: %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(resp.Status).JSON(resp)
	}

	kind := failure.KindOf(err)
	m := errorTable[kind]
	resp.Status = m.status
	resp.Error = m.label
	resp.Message = m.message
	if resp.Message == "" {
		resp.Message = failure.MessageOf(err)
	}

	log.Printf("ERROR: %s %s (%s): %v", c.Method(), c.Path(), kind, err)
	return c.Status(resp.Status).JSON(resp)
}
