package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/platform/neo4jdb"
	"github.com/confabhq/confab-backend/internal/types"
)

// ProfileWriter bundles the profile mutation functions behind one value so
// services can depend on an interface instead of the driver client.
type ProfileWriter struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewProfileWriter(client *neo4jdb.Client, baseLog *logger.Logger) *ProfileWriter {
	return &ProfileWriter{client: client, log: baseLog.With("component", "ProfileWriter")}
}

func (pw *ProfileWriter) UpsertUser(ctx context.Context, user *types.User) error {
	return UpsertUserNode(ctx, pw.client, pw.log, user)
}

func (pw *ProfileWriter) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return DeleteUserNode(ctx, pw.client, pw.log, userID)
}

func (pw *ProfileWriter) MergeAttribute(ctx context.Context, userID uuid.UUID, entity *types.CanonicalEntity, isCurrent bool) error {
	return MergeAttributeEdge(ctx, pw.client, pw.log, userID, entity, isCurrent)
}

func (pw *ProfileWriter) SetCurrentLocation(ctx context.Context, userID uuid.UUID, location *types.CanonicalEntity) error {
	return SetCurrentLocation(ctx, pw.client, pw.log, userID, location)
}
