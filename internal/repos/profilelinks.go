package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/types"
)

// ProfileLinkRepo upserts the link rows connecting users to canonical catalog
// entries. Re-linking an existing pair refreshes the validity window instead
// of failing on the composite primary key.
type ProfileLinkRepo interface {
	UpsertSkill(ctx context.Context, tx *gorm.DB, row *types.UserSkill) error
	UpsertInterest(ctx context.Context, tx *gorm.DB, row *types.UserInterest) error
	UpsertCompany(ctx context.Context, tx *gorm.DB, row *types.UserCompany) error
	UpsertJobRole(ctx context.Context, tx *gorm.DB, row *types.UserJobRole) error
}

type profileLinkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileLinkRepo(db *gorm.DB, baseLog *logger.Logger) ProfileLinkRepo {
	return &profileLinkRepo{db: db, log: baseLog.With("repo", "ProfileLinkRepo")}
}

func (pr *profileLinkRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return pr.db
}

func upsertOnAllColumns(db *gorm.DB, row any) error {
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func (pr *profileLinkRepo) UpsertSkill(ctx context.Context, tx *gorm.DB, row *types.UserSkill) error {
	return upsertOnAllColumns(pr.conn(tx).WithContext(ctx), row)
}

func (pr *profileLinkRepo) UpsertInterest(ctx context.Context, tx *gorm.DB, row *types.UserInterest) error {
	return upsertOnAllColumns(pr.conn(tx).WithContext(ctx), row)
}

func (pr *profileLinkRepo) UpsertCompany(ctx context.Context, tx *gorm.DB, row *types.UserCompany) error {
	return upsertOnAllColumns(pr.conn(tx).WithContext(ctx), row)
}

func (pr *profileLinkRepo) UpsertJobRole(ctx context.Context, tx *gorm.DB, row *types.UserJobRole) error {
	return upsertOnAllColumns(pr.conn(tx).WithContext(ctx), row)
}
