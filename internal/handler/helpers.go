package handler

import (
	"errors"
	"net/http"
	"reflect"

	"rentalhub/internal/apierror"
	"rentalhub/internal/dto"
	"rentalhub/internal/middleware"
	"rentalhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal validates as a number so min=0 and friends work on money.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// dto.Date validates as the time it wraps, so required rejects a zero date.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(dto.Date); ok {
			return v.Time
		}
		return nil
	}, dto.Date{})
}

// bindAndValidate binds the JSON body and runs the validator tags. On failure
// it writes a 400 and returns false; the caller must return immediately.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError writes typed service errors with their status. Anything else
// is handed to the ErrorHandler middleware, which logs it and answers 500.
func respondError(c *gin.Context, err error) {
	if status, body, ok := apierror.Status(err); ok {
		c.JSON(status, body)
		return
	}
	_ = c.Error(err)
}

// pathID parses the :id route parameter, writing a 400 when malformed.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom builds the service Actor from the JWT claims.
func actorFrom(c *gin.Context) service.Actor {
	actor := service.Actor{IP: c.ClientIP()}
	if claims := middleware.GetClaims(c); claims != nil {
		actor.ID = claims.UserID()
		actor.Email = claims.Email
		actor.Role = claims.Role
	}
	return actor
}
