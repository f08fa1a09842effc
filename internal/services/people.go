package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/confabhq/confab-backend/internal/platform/apierr"
	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/repos"
	"github.com/confabhq/confab-backend/internal/types"
)

// ProfileGraph mirrors profile state into the similarity graph.
// *graph.ProfileWriter is the production implementation.
type ProfileGraph interface {
	UpsertUser(ctx context.Context, user *types.User) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	MergeAttribute(ctx context.Context, userID uuid.UUID, entity *types.CanonicalEntity, isCurrent bool) error
	SetCurrentLocation(ctx context.Context, userID uuid.UUID, location *types.CanonicalEntity) error
}

type RegisterUserInput struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	AvatarURL            string `json:"avatar_url"`
	Biography            string `json:"biography"`
	Phone                string `json:"phone"`
	RegistrationCategory string `json:"registration_category"`
}

// ProfileUpdateInput carries free-form profile text. Entity-like fields are
// canonicalized before anything is written.
type ProfileUpdateInput struct {
	FirstName *string  `json:"first_name,omitempty"`
	LastName  *string  `json:"last_name,omitempty"`
	AvatarURL *string  `json:"avatar_url,omitempty"`
	Biography *string  `json:"biography,omitempty"`
	Phone     *string  `json:"phone,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	Interests []string `json:"interests,omitempty"`
	Company   *string  `json:"company,omitempty"`
	JobRole   *string  `json:"job_role,omitempty"`
	Location  *string  `json:"location,omitempty"`
}

type PeopleService interface {
	Register(ctx context.Context, input RegisterUserInput) (*types.User, error)
	Get(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileUpdateInput) (*types.User, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type peopleService struct {
	db     *gorm.DB
	users  repos.UserRepo
	links  repos.ProfileLinkRepo
	events repos.UserEventRepo
	canon  Canonicalizer
	graph  ProfileGraph
	log    *logger.Logger
}

func NewPeopleService(db *gorm.DB, users repos.UserRepo, links repos.ProfileLinkRepo, events repos.UserEventRepo, canon Canonicalizer, profileGraph ProfileGraph, baseLog *logger.Logger) (PeopleService, error) {
	if users == nil || links == nil || events == nil {
		return nil, fmt.Errorf("people service requires user, link and event repos")
	}
	if canon == nil {
		return nil, fmt.Errorf("people service requires a canonicalizer")
	}
	if profileGraph == nil {
		return nil, fmt.Errorf("people service requires a profile graph")
	}
	return &peopleService{
		db:     db,
		users:  users,
		links:  links,
		events: events,
		canon:  canon,
		graph:  profileGraph,
		log:    baseLog.With("service", "PeopleService"),
	}, nil
}

func (ps *peopleService) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if ps.db == nil {
		return fn(nil)
	}
	return ps.db.WithContext(ctx).Transaction(fn)
}

func (ps *peopleService) Register(ctx context.Context, input RegisterUserInput) (*types.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apierr.InvalidArgument(fmt.Errorf("email is required"))
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, apierr.InvalidArgument(fmt.Errorf("first and last name are required"))
	}

	exists, err := ps.users.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("email lookup: %w", err))
	}
	if exists {
		return nil, apierr.New(409, apierr.CodeConflict, fmt.Errorf("email already registered"))
	}

	user := &types.User{
		ID:                   uuid.New(),
		Email:                email,
		PasswordHash:         input.Password,
		FirstName:            strings.TrimSpace(input.FirstName),
		LastName:             strings.TrimSpace(input.LastName),
		AvatarURL:            input.AvatarURL,
		Biography:            input.Biography,
		Phone:                input.Phone,
		RegistrationCategory: input.RegistrationCategory,
	}

	err = ps.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := ps.users.Create(ctx, tx, user); err != nil {
			return err
		}
		return ps.events.Append(ctx, tx, &types.UserEvent{
			ID:        uuid.New(),
			UserID:    user.ID,
			EventType: types.UserEventRegistered,
		})
	})
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("register user: %w", err))
	}

	if err := ps.graph.UpsertUser(ctx, user); err != nil {
		ps.log.Warn("Graph user sync failed after registration", "user_id", user.ID, "error", err)
	}
	ps.log.Info("Registered user", "user_id", user.ID)
	return user, nil
}

func (ps *peopleService) Get(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	if userID == uuid.Nil {
		return nil, apierr.InvalidArgument(fmt.Errorf("user id is required"))
	}
	user, err := ps.users.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("user lookup: %w", err))
	}
	if user == nil {
		return nil, apierr.NotFound(fmt.Errorf("user %s not found", userID))
	}
	return user, nil
}

type resolvedAttribute struct {
	entity    *types.CanonicalEntity
	isCurrent bool
}

func (ps *peopleService) UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileUpdateInput) (*types.User, error) {
	if _, err := ps.Get(ctx, userID); err != nil {
		return nil, err
	}

	// Canonicalization calls out to the embedding API, so it happens before
	// the write transaction opens.
	resolved, location, err := ps.resolveAttributes(ctx, input)
	if err != nil {
		return nil, err
	}

	fields := scalarUpdates(input)
	now := time.Now().UTC()

	err = ps.inTx(ctx, func(tx *gorm.DB) error {
		if err := ps.users.UpdateFields(ctx, tx, userID, fields); err != nil {
			return err
		}
		for _, attr := range resolved {
			if err := ps.upsertLink(ctx, tx, userID, attr, now); err != nil {
				return err
			}
		}
		if location != nil {
			if err := ps.users.SetCurrentLocation(ctx, tx, userID, location.ID); err != nil {
				return err
			}
		}
		payload, err := updatePayload(input, resolved, location)
		if err != nil {
			return err
		}
		return ps.events.Append(ctx, tx, &types.UserEvent{
			ID:        uuid.New(),
			UserID:    userID,
			EventType: types.UserEventProfileUpdated,
			Payload:   payload,
		})
	})
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("update profile: %w", err))
	}

	ps.syncGraph(ctx, userID, resolved, location)

	updated, err := ps.users.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("reload user: %w", err))
	}
	ps.log.Info("Updated profile", "user_id", userID,
		"resolved_entities", len(resolved), "location_set", location != nil)
	return updated, nil
}

func (ps *peopleService) resolveAttributes(ctx context.Context, input ProfileUpdateInput) ([]resolvedAttribute, *types.CanonicalEntity, error) {
	var resolved []resolvedAttribute

	appendKind := func(values []string, kind types.EntityKind, isCurrent bool) error {
		for _, raw := range values {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			entity, err := ps.canon.Resolve(ctx, raw, kind)
			if err != nil {
				return err
			}
			resolved = append(resolved, resolvedAttribute{entity: entity, isCurrent: isCurrent})
		}
		return nil
	}

	if err := appendKind(input.Skills, types.EntityKindSkill, false); err != nil {
		return nil, nil, err
	}
	if err := appendKind(input.Interests, types.EntityKindInterest, false); err != nil {
		return nil, nil, err
	}
	if input.Company != nil {
		if err := appendKind([]string{*input.Company}, types.EntityKindCompany, true); err != nil {
			return nil, nil, err
		}
	}
	if input.JobRole != nil {
		if err := appendKind([]string{*input.JobRole}, types.EntityKindJobRole, false); err != nil {
			return nil, nil, err
		}
	}

	var location *types.CanonicalEntity
	if input.Location != nil && strings.TrimSpace(*input.Location) != "" {
		entity, err := ps.canon.ResolveExact(ctx, *input.Location, types.EntityKindLocation)
		if err != nil {
			return nil, nil, err
		}
		location = entity
	}
	return resolved, location, nil
}

func (ps *peopleService) upsertLink(ctx context.Context, tx *gorm.DB, userID uuid.UUID, attr resolvedAttribute, now time.Time) error {
	entity := attr.entity
	switch entity.Kind {
	case types.EntityKindSkill:
		return ps.links.UpsertSkill(ctx, tx, &types.UserSkill{
			UserID: userID, SkillInterestID: entity.ID,
			AssignedAt: now, ValidFrom: now, ValidTo: types.CatalogForever,
		})
	case types.EntityKindInterest:
		return ps.links.UpsertInterest(ctx, tx, &types.UserInterest{
			UserID: userID, SkillInterestID: entity.ID,
			AssignedAt: now, ValidFrom: now, ValidTo: types.CatalogForever,
		})
	case types.EntityKindCompany:
		return ps.links.UpsertCompany(ctx, tx, &types.UserCompany{
			UserID: userID, CompanyID: entity.ID, IsCurrent: attr.isCurrent,
			AssignedAt: now, ValidFrom: now, ValidTo: types.CatalogForever,
		})
	case types.EntityKindJobRole:
		return ps.links.UpsertJobRole(ctx, tx, &types.UserJobRole{
			UserID: userID, JobRoleID: entity.ID,
			AssignedAt: now, ValidFrom: now, ValidTo: types.CatalogForever,
		})
	default:
		return fmt.Errorf("no link table for entity kind %q", entity.Kind)
	}
}

// syncGraph mirrors the committed profile into Neo4j. The row store is the
// source of truth; graph failures degrade recommendations, not profile writes.
func (ps *peopleService) syncGraph(ctx context.Context, userID uuid.UUID, resolved []resolvedAttribute, location *types.CanonicalEntity) {
	if user, err := ps.users.GetByID(ctx, nil, userID); err == nil && user != nil {
		if err := ps.graph.UpsertUser(ctx, user); err != nil {
			ps.log.Warn("Graph user sync failed", "user_id", userID, "error", err)
		}
	}
	for _, attr := range resolved {
		if err := ps.graph.MergeAttribute(ctx, userID, attr.entity, attr.isCurrent); err != nil {
			ps.log.Warn("Graph attribute sync failed", "user_id", userID,
				"kind", attr.entity.Kind, "error", err)
		}
	}
	if location != nil {
		if err := ps.graph.SetCurrentLocation(ctx, userID, location); err != nil {
			ps.log.Warn("Graph location sync failed", "user_id", userID, "error", err)
		}
	}
}

func scalarUpdates(input ProfileUpdateInput) map[string]any {
	fields := map[string]any{}
	if input.FirstName != nil {
		fields["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		fields["last_name"] = *input.LastName
	}
	if input.AvatarURL != nil {
		fields["avatar_url"] = *input.AvatarURL
	}
	if input.Biography != nil {
		fields["biography"] = *input.Biography
	}
	if input.Phone != nil {
		fields["phone"] = *input.Phone
	}
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
	}
	return fields
}

func updatePayload(input ProfileUpdateInput, resolved []resolvedAttribute, location *types.CanonicalEntity) (datatypes.JSON, error) {
	entities := make([]map[string]string, 0, len(resolved))
	for _, attr := range resolved {
		entities = append(entities, map[string]string{
			"id":   attr.entity.ID.String(),
			"kind": string(attr.entity.Kind),
			"name": attr.entity.Name,
		})
	}
	body := map[string]any{
		"scalar_fields":     scalarFieldNames(input),
		"resolved_entities": entities,
	}
	if location != nil {
		body["location"] = map[string]string{"id": location.ID.String(), "name": location.Name}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func scalarFieldNames(input ProfileUpdateInput) []string {
	var names []string
	if input.FirstName != nil {
		names = append(names, "first_name")
	}
	if input.LastName != nil {
		names = append(names, "last_name")
	}
	if input.AvatarURL != nil {
		names = append(names, "avatar_url")
	}
	if input.Biography != nil {
		names = append(names, "biography")
	}
	if input.Phone != nil {
		names = append(names, "phone")
	}
	return names
}

func (ps *peopleService) Delete(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return apierr.InvalidArgument(fmt.Errorf("user id is required"))
	}

	var found bool
	err := ps.inTx(ctx, func(tx *gorm.DB) error {
		ok, err := ps.users.Delete(ctx, tx, userID)
		if err != nil {
			return err
		}
		found = ok
		return nil
	})
	if err != nil {
		return apierr.Unavailable(fmt.Errorf("delete user: %w", err))
	}
	if !found {
		return apierr.NotFound(fmt.Errorf("user %s not found", userID))
	}

	if err := ps.graph.DeleteUser(ctx, userID); err != nil {
		ps.log.Warn("Graph user delete failed", "user_id", userID, "error", err)
	}
	ps.log.Info("Deleted user", "user_id", userID)
	return nil
}
