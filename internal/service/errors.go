package service

import (
	"errors"

	"github.com/digitalmaniak/sidewidth/internal/models"
)

func isAppError(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr)
}
