package api

import (
	"errors"
	"fmt"
	"log"

	"collegeseeker/types"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler maps the pipeline error taxonomy onto HTTP statuses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiError, ok := err.(Error); ok {
		return c.Status(apiError.Code).JSON(apiError)
	}

	var valErr types.ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	var cfgErr types.ConfigError
	if errors.As(err, &cfgErr) {
		return c.Status(fiber.StatusBadRequest).JSON(NewError(fiber.StatusBadRequest, cfgErr.Error()))
	}

	var extErr types.ExternalServiceError
	if errors.As(err, &extErr) {
		apiError := NewError(fiber.StatusBadGateway, extErr.Error())
		log.Printf("external service failure: %s\n", extErr.Error())
		return c.Status(apiError.Code).JSON(apiError)
	}

	var emptyErr types.EmptyResponseError
	if errors.As(err, &emptyErr) {
		return c.Status(fiber.StatusBadGateway).JSON(NewError(fiber.StatusBadGateway, emptyErr.Error()))
	}

	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	apiError := NewError(code, err.Error())
	log.Printf("request failed with code %d and message: %s\n", apiError.Code, apiError.Message)
	return c.Status(apiError.Code).JSON(apiError)
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrInvalidFile(msg string) Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: msg,
	}
}

func ErrNotFound[T any](arg T, resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with %v not found", resource, arg),
	}
}
