package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/calloff/internal/advisor"
	"github.com/i474232898/calloff/internal/alert"
	"github.com/i474232898/calloff/internal/evaluation"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *advisor.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/evaluations", func(c *fiber.Ctx) error {
		req := defaultHistoryQuery()
		if err := c.QueryParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		entries, err := service.History(c.UserContext(), req.toQuery())
		if err != nil {
			return toFiberError(err, "failed to read evaluations")
		}

		return c.JSON(fiber.Map{
			"date":        req.Date,
			"fromHour":    req.FromHour,
			"toHour":      req.ToHour,
			"order":       req.Order,
			"evaluations": entries,
		})
	})

	v1.Get("/evaluations/latest", func(c *fiber.Ctx) error {
		entry, err := service.Latest(c.UserContext())
		if err != nil {
			return toFiberError(err, "failed to read latest evaluation")
		}

		resp := latestResponse{Entry: entry}
		p, err := service.Predict(entry.Evaluation)
		switch {
		case err == nil:
			resp.Prediction = &p
		case !errors.Is(err, advisor.ErrNoModel):
			resp.PredictionError = err.Error()
		}
		return c.JSON(resp)
	})

	v1.Get("/evaluations/summary", func(c *fiber.Ctx) error {
		date, err := parseDate(c.Query("date"), service.Today())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sum, err := service.Summarize(c.UserContext(), date)
		if err != nil {
			return toFiberError(err, "failed to summarize evaluations")
		}
		return c.JSON(sum)
	})

	v1.Put("/evaluations/:timestamp/outcome", func(c *fiber.Ctx) error {
		ts, err := parseTime(c.Params("timestamp"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var req outcomeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		outcome, err := evaluation.ParseOutcome(req.Outcome)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := service.BackfillOutcome(c.UserContext(), ts, outcome); err != nil {
			return toFiberError(err, "failed to record outcome")
		}

		return c.JSON(fiber.Map{
			"timestamp": evaluation.Normalize(ts),
			"outcome":   outcome,
		})
	})

	v1.Post("/ticks", func(c *fiber.Ctx) error {
		res, err := service.RunTick(c.UserContext())
		if err != nil {
			return toFiberError(err, "tick failed")
		}

		resp := tickResponse{TickResult: res}
		if res.AlertError != nil {
			resp.AlertError = res.AlertError.Error()
		}
		return c.JSON(resp)
	})

	v1.Get("/dates", func(c *fiber.Ctx) error {
		dates, err := service.Dates(c.UserContext())
		if err != nil {
			return toFiberError(err, "failed to list dates")
		}
		return c.JSON(fiber.Map{"dates": dates})
	})
}

// ErrorHandler renders every error as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func toFiberError(err error, fallback string) error {
	switch {
	case errors.Is(err, evaluation.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, evaluation.ErrInvalid):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Date     string `query:"date" validate:"omitempty,datetime=2006-01-02"`
	FromHour int    `query:"from_hour" validate:"gte=0,lte=23"`
	ToHour   int    `query:"to_hour" validate:"gte=0,lte=23,gtefield=FromHour"`
	Order    string `query:"order" validate:"oneof=asc desc"`
	Limit    int    `query:"limit" validate:"gte=0,lte=10000"`
}

func defaultHistoryQuery() historyQuery {
	return historyQuery{FromHour: 0, ToHour: 23, Order: "desc"}
}

func (h historyQuery) toQuery() advisor.HistoryQuery {
	return advisor.HistoryQuery{
		Date:       alert.Date(h.Date),
		FromHour:   h.FromHour,
		ToHour:     h.ToHour,
		Descending: h.Order == "desc",
		Limit:      h.Limit,
	}
}

type outcomeRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

type latestResponse struct {
	advisor.Entry
	Prediction      *advisor.Prediction `json:"prediction,omitempty"`
	PredictionError string              `json:"predictionError,omitempty"`
}

type tickResponse struct {
	advisor.TickResult
	AlertError string `json:"alertError,omitempty"`
}

func parseDate(s string, def alert.Date) (alert.Date, error) {
	if s == "" {
		return def, nil
	}
	d, err := alert.ParseDate(s)
	if err != nil {
		return "", errors.New("invalid date; use YYYY-MM-DD")
	}
	return d, nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
