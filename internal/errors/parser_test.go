package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		context string
		code    string
	}{
		{"nil", nil, "", InternalServerError},
		{"record not found", fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), "get order", ResourceNotFound},
		{"postgres unique", errors.New(`ERROR: duplicate key value violates unique constraint "idx_products_slug"`), "create product", ResourceAlreadyExists},
		{"sqlite unique", errors.New("UNIQUE constraint failed: product_attribute_values.product_id"), "offer value", ResourceAlreadyExists},
		{"category still referenced", errors.New(`update or delete on table "categories" violates foreign key constraint "fk_products_category" on table "products": key is still referenced`), "delete category", CategoryInUse},
		{"missing product", errors.New(`insert violates foreign key constraint "fk_product_variants_product": key (product_id)=(9) is not present`), "create variant", ProductNotFound},
		{"sqlite check", errors.New("CHECK constraint failed: chk_product_variants_stock"), "update variant", ValidationInvalidRange},
		{"not null", errors.New(`null value in column "email" violates not-null constraint`), "checkout", ValidationRequired},
		{"network", errors.New("dial tcp: connection refused"), "", InternalExternalAPI},
		{"unknown", errors.New("boom"), "checkout", InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.context)
			assert.Equal(t, tt.code, info.Code)
			assert.NotEmpty(t, info.Message)
		})
	}
}

func TestParseError_ContextMessages(t *testing.T) {
	assert.Equal(t, "variant not found", ParseError(gorm.ErrRecordNotFound, "update variant").Message)
	assert.Equal(t, "checkout failed, please retry later", ParseError(errors.New("x"), "checkout").Message)
}

func TestResponders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Conflict(c, OrderInsufficientStock, "insufficient stock")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"ORDER_INSUFFICIENT_STOCK","message":"insufficient stock"}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	Unauthorized(c, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), AuthUnauthorized)
}
