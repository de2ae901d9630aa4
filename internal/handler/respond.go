package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/apperror"
)

// respondError writes err with the status of its taxonomy code.
func respondError(c *gin.Context, err error) {
	c.JSON(apperror.HTTPStatus(err), model.ErrorResponse{
		Error: apperror.MessageOf(err),
		Code:  string(apperror.CodeOf(err)),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   "invalid request",
		Code:    string(apperror.CodeInvalidArgument),
		Message: err.Error(),
	})
}

func currentUser(c *gin.Context) uuid.UUID {
	return c.MustGet(middleware.UserIDKey).(uuid.UUID)
}

func currentUserName(c *gin.Context) string {
	return c.GetString(middleware.UserNameKey)
}

// pathID parses the :name path parameter, answering 400 when it is not a
// UUID.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperror.InvalidArg("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
