package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/confabhq/confab-backend/internal/platform/apierr"
	"github.com/confabhq/confab-backend/internal/services"
)

type UserHandler struct {
	peopleService services.PeopleService
}

func NewUserHandler(peopleService services.PeopleService) *UserHandler {
	return &UserHandler{peopleService: peopleService}
}

func userIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return uuid.Nil, apierr.InvalidArgument(fmt.Errorf("invalid user id %q", c.Param("user_id")))
	}
	return id, nil
}

func (uh *UserHandler) Register(c *gin.Context) {
	var input services.RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.InvalidArgument(err))
		return
	}
	user, err := uh.peopleService.Register(c.Request.Context(), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"user": user})
}

func (uh *UserHandler) Get(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	user, err := uh.peopleService.Get(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

func (uh *UserHandler) UpdateProfile(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var input services.ProfileUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.InvalidArgument(err))
		return
	}
	user, err := uh.peopleService.UpdateProfile(c.Request.Context(), userID, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

func (uh *UserHandler) Delete(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := uh.peopleService.Delete(c.Request.Context(), userID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
