package handler

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"pharmacy/internal/middleware"
	"pharmacy/internal/service"
	"pharmacy/pkg/actor"
	"pharmacy/pkg/apperror"
	"pharmacy/pkg/pagination"
	"pharmacy/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var bindingOnce sync.Once

// ConfigureBinding aligns gin's validator with the service validator so both
// report json field names.
func ConfigureBinding() {
	bindingOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			service.ConfigureValidator(v)
		}
	})
}

// writeError maps err onto the error envelope. Storage failures keep their cause
// in the gin error list for the access log and return a generic message.
func writeError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	if appErr.Kind == apperror.KindPersistence {
		_ = c.Error(err)
	}
	c.JSON(appErr.StatusCode, response.ErrorWithCode(appErr.StatusCode, appErr.Message, appErr.Code, appErr.Details))
}

// bindError reports a request body that could not be decoded or validated.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		writeError(c, service.ValidationError(err))
		return
	}
	writeError(c, apperror.ValidationField("body", "Invalid request payload: "+err.Error()))
}

func requireActor(c *gin.Context) (actor.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		writeError(c, apperror.ValidationField("actor", "acting user is required"))
	}
	return a, ok
}

func queryDate(c *gin.Context, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := service.ParseDate(raw)
	if err != nil {
		return nil, apperror.ValidationField(name, err.Error())
	}
	// A bare date used as an upper bound covers the whole day.
	if endOfDay && len(raw) == len("2006-01-02") {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func queryInt64(c *gin.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperror.ValidationField(name, "must be an integer")
	}
	return &v, nil
}

func writePage(c *gin.Context, data interface{}, p pagination.Params, total int64) {
	c.JSON(200, response.Page(200, data, p.Page, p.Limit, total))
}
