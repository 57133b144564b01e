package server

import (
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// respondError writes err with the status derived from its code, logging server faults.
func respondError(c *fiber.Ctx, err error) error {
	if models.StatusOf(err) >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithAppError(c, err)
}

func respondDetail(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(fiber.Map{"detail": detail})
}

// respondAccountError renders account workflow errors. Errors that are not about one
// field are reported under "detail"; an unverified login is reported under "details".
func respondAccountError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code == models.CodeInternal {
		return respondError(c, err)
	}
	switch appErr.Field {
	case "":
		return c.Status(appErr.Status()).JSON(fiber.Map{"detail": appErr.Message, "code": appErr.Code})
	case "details":
		return c.Status(appErr.Status()).JSON(fiber.Map{"details": appErr.Message, "code": appErr.Code})
	}
	return respondError(c, err)
}

// parseBody decodes the JSON body into req and runs its validate tags.
// On failure it writes a 400 response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return parseStruct(c, req)
}

// parseStruct runs the validate tags of v, writing a 400 response on failure.
func parseStruct(c *fiber.Ctx, v any) error {
	if err := validation.Struct(v); err != nil {
		_ = models.RespondWithAppError(c, err)
		return errResponseWritten
	}
	return nil
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		return strings.ToLower(param[:len(param)-2]) + " ID"
	}
	return param
}

// optionalBool parses a boolean query filter; an absent or unparsable value is nil.
func optionalBool(c *fiber.Ctx, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// absoluteURL joins path onto the scheme and host of the current request.
func absoluteURL(c *fiber.Ctx, path string) string {
	return c.BaseURL() + path
}

// paginationMeta describes one page of a listing.
type paginationMeta struct {
	CurrentPage int     `json:"current_page"`
	TotalPages  int     `json:"total_pages"`
	TotalItems  int64   `json:"total_items"`
	PageSize    int     `json:"page_size"`
	Next        *string `json:"next"`
	Previous    *string `json:"previous"`
}

// pageResponse is the envelope of every paginated listing.
type pageResponse[T any] struct {
	Pagination paginationMeta `json:"pagination"`
	Results    []T            `json:"results"`
}

func pageParams(c *fiber.Ctx) (page, pageSize int) {
	return c.QueryInt("page", 1), c.QueryInt("page_size", 0)
}

// pageURL rewrites the page query parameter of the current request URL.
func pageURL(c *fiber.Ctx, page int) *string {
	q, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		q = url.Values{}
	}
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := absoluteURL(c, c.Path())
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return &u
}

// respondPage writes a page of items converted with render. Pages past the end are 404.
func respondPage[M, T any](c *fiber.Ctx, page *models.Page[M], render func(*M) T) error {
	totalPages := page.TotalPages()
	if page.Page > totalPages {
		return respondDetail(c, fiber.StatusNotFound, "Invalid page.")
	}

	results := make([]T, 0, len(page.Items))
	for i := range page.Items {
		results = append(results, render(&page.Items[i]))
	}

	meta := paginationMeta{
		CurrentPage: page.Page,
		TotalPages:  totalPages,
		TotalItems:  page.Total,
		PageSize:    page.PageSize,
	}
	if page.Page < totalPages {
		meta.Next = pageURL(c, page.Page+1)
	}
	if page.Page > 1 {
		meta.Previous = pageURL(c, page.Page-1)
	}
	return c.JSON(pageResponse[T]{Pagination: meta, Results: results})
}
