package handler

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apierror.Wrap(apierror.InvalidArgument, "JSON inválido", err))
		return false
	}
	return validateStruct(c, req)
}

// bindOptional is bindAndValidate for endpoints whose body may be omitted.
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return validateStruct(c, req)
	}
	return bindAndValidate(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		if ves, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ves {
				fields[fe.Field()] = fe.Tag()
			}
		}
		respondError(c, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError writes the {ok:false,error} envelope. Internal causes are
// logged with the request id and never sent.
func respondError(c *gin.Context, err error) {
	apiErr := apierror.From(err)
	ev := log.Warn()
	if apiErr.Code == apierror.Internal {
		ev = log.Error()
	}
	ev.Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("path", c.FullPath()).
		Str("code", string(apiErr.Code)).
		Err(err).
		Msg("request failed")
	c.AbortWithStatusJSON(apiErr.Code.HTTPStatus(), apierror.Response(apiErr))
}

// respondOK writes {ok:true, ...payload}. Payload must encode as a JSON object.
func respondOK(c *gin.Context, status int, payload interface{}) {
	body := gin.H{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			err = json.Unmarshal(raw, &body)
		}
		if err != nil {
			respondError(c, apierror.Wrap(apierror.Internal, "Error interno del servidor", err))
			return
		}
	}
	body["ok"] = true
	c.JSON(status, body)
}

// queryInt reads an optional integer query parameter; 0 when absent.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(c, apierror.NewValidation(map[string]string{key: "int"}))
		return 0, false
	}
	return n, true
}

func ok(c *gin.Context, payload interface{}) { respondOK(c, http.StatusOK, payload) }
