package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewNotFoundError("Post", 1), fiber.StatusNotFound},
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewFieldError("email", "bad"), fiber.StatusBadRequest},
		{NewConflictError("taken"), fiber.StatusBadRequest},
		{NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{NewForbiddenError("no"), fiber.StatusForbidden},
		{NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Status(), tt.err.Code)
	}
}

func TestStatusOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NewForbiddenError("nope"))
	assert.Equal(t, fiber.StatusForbidden, StatusOf(wrapped))
	assert.True(t, IsCode(wrapped, CodeForbidden))
	assert.Equal(t, fiber.StatusInternalServerError, StatusOf(errors.New("plain")))
}

func TestRespondWithError(t *testing.T) {
	app := fiber.New()
	app.Get("/field", func(c *fiber.Ctx) error {
		return RespondWithAppError(c, NewFieldError("password", "Password fields didn't match."))
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return RespondWithAppError(c, NewInternalError(errors.New("db down")))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/field", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	var got ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "password", got.Field)
	assert.Equal(t, CodeValidation, got.Code)

	resp, err = app.Test(httptest.NewRequest("GET", "/internal", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "db down")
}

func TestPageTotalPages(t *testing.T) {
	assert.Equal(t, 1, Page[int]{Total: 0, PageSize: 5}.TotalPages())
	assert.Equal(t, 1, Page[int]{Total: 5, PageSize: 5}.TotalPages())
	assert.Equal(t, 3, Page[int]{Total: 11, PageSize: 5}.TotalPages())
	assert.Equal(t, 10, Offset(3, 5))
	assert.Equal(t, 0, Offset(0, 5))
}
