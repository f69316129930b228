package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-marketplace/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type couponBody struct {
	Code      string   `json:"code" validate:"required,max=32"`
	CourseIDs []string `json:"course_ids" validate:"omitempty,dive,required"`
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"SAVE20"}`))
	var body couponBody
	require.NoError(t, DecodeAndValidate(r, &body))
	assert.Equal(t, "SAVE20", body.Code)
}

func TestDecodeAndValidate_FieldErrorsUseJSONNames(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":""}`))
	var body couponBody
	err := DecodeAndValidate(r, &body)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	_, _, details := apperrors.Public(err)
	assert.Contains(t, details, "code")
}

func TestDecodeAndValidate_BadJSON(t *testing.T) {
	for _, raw := range []string{"", "{", `{"unknown":1}`} {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		var body couponBody
		err := DecodeAndValidate(r, &body)
		assert.True(t, apperrors.IsValidation(err), raw)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, apperrors.Validation("coupon_not_found", "Invalid coupon code")))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "coupon_not_found", resp.Error)
	assert.Equal(t, "Invalid coupon code", resp.Message)
}

func TestWriteError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestNewOrderID(t *testing.T) {
	a, b := NewOrderID(), NewOrderID()
	assert.True(t, strings.HasPrefix(a, "ord_"))
	assert.NotEqual(t, a, b)
}
