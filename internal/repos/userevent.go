package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/types"
)

type UserEventRepo interface {
	Append(ctx context.Context, tx *gorm.DB, event *types.UserEvent) error
}

type userEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserEventRepo(db *gorm.DB, baseLog *logger.Logger) UserEventRepo {
	return &userEventRepo{db: db, log: baseLog.With("repo", "UserEventRepo")}
}

func (er *userEventRepo) Append(ctx context.Context, tx *gorm.DB, event *types.UserEvent) error {
	conn := tx
	if conn == nil {
		conn = er.db
	}
	return conn.WithContext(ctx).Create(event).Error
}
