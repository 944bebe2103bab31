package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/forecast-text-service/internal/failure"
	"github.com/i474232898/forecast-text-service/internal/text"
	"github.com/i474232898/forecast-text-service/internal/weather"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report wire names in validation messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services the routes call.
type Dependencies struct {
	Forecasts *weather.Service
	Texts     *text.Service
	// Health is checked by GET /health when set.
	Health              Pinger
	HistoryDefaultLimit int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	if deps.HistoryDefaultLimit <= 0 {
		deps.HistoryDefaultLimit = 20
	}

	if deps.Health != nil {
		app.Get("/health", func(c *fiber.Ctx) error {
			if err := deps.Health.Ping(c.UserContext()); err != nil {
				log.Printf("ERROR: health check failed: %v", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":  "unavailable",
					"service": "forecast-text-service",
				})
			}
			return c.JSON(fiber.Map{
				"status":  "ok",
				"service": "forecast-text-service",
			})
		})
	}

	v1 := app.Group("/api/v1")

	v1.Post("/forecasts", func(c *fiber.Ctx) error {
		var body forecastBody
		if err := c.BodyParser(&body); err != nil {
			return failure.InvalidArgument("Malformed JSON request or missing body")
		}
		if err := validate.Struct(body); err != nil {
			return failure.InvalidArgument(validationMessage(err))
		}

		summary, err := deps.Forecasts.Process(c.UserContext(), body.toRequest())
		if err != nil {
			return err
		}

		return c.JSON(summary)
	})

	v1.Get("/forecasts", func(c *fiber.Ctx) error {
		q, err := parseHistoryQuery(c, deps.HistoryDefaultLimit)
		if err != nil {
			return err
		}

		records, err := deps.Forecasts.History(c.UserContext(), q.Limit)
		if err != nil {
			return err
		}

		return c.JSON(records)
	})

	v1.Get("/texts/replace", func(c *fiber.Ctx) error {
		if !c.Context().QueryArgs().Has("text") {
			return failure.InvalidArgument("Missing required parameter: text")
		}
		// Fiber reuses request buffers; the text outlives this handler in the store.
		input := utils.CopyString(c.Query("text"))

		result, err := deps.Texts.Process(c.UserContext(), &input)
		if err != nil {
			return err
		}
		if result == nil {
			return c.Status(fiber.StatusOK).Send(nil)
		}

		return c.JSON(result)
	})

	v1.Get("/texts", func(c *fiber.Ctx) error {
		q, err := parseHistoryQuery(c, deps.HistoryDefaultLimit)
		if err != nil {
			return err
		}

		records, err := deps.Texts.History(c.UserContext(), q.OriginalText, q.Limit)
		if err != nil {
			return err
		}

		return c.JSON(records)
	})
}

// forecastBody is the wire form of a forecast request. The addTemprature
// spelling is part of the public contract.
type forecastBody struct {
	AddTemprature *bool `json:"addTemprature" validate:"required"`
	AddHumidity   *bool `json:"addHumidity" validate:"required"`
	AddWindSpeed  *bool `json:"addWindSpeed" validate:"required"`
}

func (b forecastBody) toRequest() *weather.ForecastRequest {
	return &weather.ForecastRequest{
		IncludeTemperature: *b.AddTemprature,
		IncludeHumidity:    *b.AddHumidity,
		IncludeWindSpeed:   *b.AddWindSpeed,
	}
}

// historyQuery holds query parameters for the history endpoints.
type historyQuery struct {
	Limit        int    `query:"limit" validate:"min=1,max=500"`
	OriginalText string `query:"originalText"`
}

func parseHistoryQuery(c *fiber.Ctx, defaultLimit int) (historyQuery, error) {
	q := historyQuery{
		Limit:        defaultLimit,
		OriginalText: c.Query("originalText"),
	}

	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, failure.InvalidArgument("limit: must be an integer")
		}
		q.Limit = n
	}

	if err := validate.Struct(q); err != nil {
		return q, failure.InvalidArgument(validationMessage(err))
	}

	return q, nil
}

// validationMessage describes the first failed field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation failed"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: %s field is mandatory", fe.Field(), fe.Field())
	case "min":
		return fmt.Sprintf("%s: must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s validation", fe.Field(), fe.Tag())
	}
}
