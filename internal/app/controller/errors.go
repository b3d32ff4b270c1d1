package controller

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/opticplace/opticplace-backend/internal/app/service"
	apperrors "github.com/opticplace/opticplace-backend/internal/errors"
	"github.com/opticplace/opticplace-backend/internal/middleware"
)

// specific service errors with their own wire code; anything else falls back to the kind
var serviceErrorCodes = []struct {
	err  error
	code string
}{
	{service.ErrProductNotFound, apperrors.ProductNotFound},
	{service.ErrVariantNotFound, apperrors.VariantNotFound},
	{service.ErrCategoryNotFound, apperrors.CategoryNotFound},
	{service.ErrOrderNotFound, apperrors.OrderNotFound},
	{service.ErrInvalidFilter, apperrors.CatalogInvalidFilter},
	{service.ErrInvalidValueSet, apperrors.VariantInvalidValueSet},
	{service.ErrTooManyCombinations, apperrors.VariantTooMany},
	{service.ErrVariantRequired, apperrors.OrderVariantRequired},
	{service.ErrInsufficientStock, apperrors.OrderInsufficientStock},
	{service.ErrDuplicateVariant, apperrors.VariantDuplicate},
	{service.ErrOrderNotCancellable, apperrors.OrderNotCancellable},
	{service.ErrInvalidTransition, apperrors.OrderInvalidTransition},
	{service.ErrCategoryInUse, apperrors.CategoryInUse},
}

// respondServiceError maps a service error kind to its HTTP status
func respondServiceError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)

	code := ""
	for _, e := range serviceErrorCodes {
		if errors.Is(err, e.err) {
			code = e.code
			break
		}
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		if code == "" {
			code = apperrors.ValidationInvalidInput
		}
		log.Warn(action+" rejected", map[string]interface{}{"error": err.Error()})
		apperrors.BadRequest(c, code, err.Error())
	case errors.Is(err, service.ErrNotFound):
		if code == "" {
			code = apperrors.ResourceNotFound
		}
		apperrors.NotFound(c, code, err.Error())
	case errors.Is(err, service.ErrConflict):
		if code == "" {
			code = apperrors.ResourceConflict
		}
		log.Warn(action+" conflicted", map[string]interface{}{"error": err.Error()})
		apperrors.Conflict(c, code, err.Error())
	case errors.Is(err, service.ErrIntegrity):
		if code == "" {
			code = apperrors.InternalIntegrity
		}
		log.Error(action+" violated integrity", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, code, err.Error())
	default:
		log.Error(action+" failed", err)
		info := apperrors.ParseError(err, action)
		apperrors.RespondWithError(c, storageErrorStatus(info.Code), info.Code, info.Message)
	}
}

func storageErrorStatus(code string) int {
	switch code {
	case apperrors.ResourceNotFound:
		return http.StatusNotFound
	case apperrors.ResourceAlreadyExists:
		return http.StatusConflict
	case apperrors.ValidationRequired, apperrors.ValidationInvalidInput, apperrors.ValidationInvalidRange:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid id parameter", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func init() {
	// validation errors name fields by their json keys
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// respondBindError reports validator failures per field and anything else (bad JSON) as a message
func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
		"error": err.Error(),
	})

	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		fields := make(map[string]string, len(invalid))
		for _, fe := range invalid {
			fields[fieldPath(fe)] = fe.Tag()
		}
		apperrors.RespondWithValidationError(c, fields)
		return
	}
	apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
}

// fieldPath drops the request struct name, e.g. "lines[0].quantity"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
