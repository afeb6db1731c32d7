package firestore

import (
	"context"
	"errors"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/docmodel"

	fs "cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Users (implements port.UserReader / port.UserWriter)
// ============================================================

// GetUser fetches users/{id}.
func (c *Client) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Firestore.GetUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var user *domain.User
	err := c.call(ctx, "get_user", func() error {
		f, err := getData(ctx, c.userDoc(userID))
		if err != nil {
			return err
		}
		u := docmodel.User(userID, f)
		user = &u
		return nil
	})
	if errors.Is(err, errNoDocument) {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// userQuery translates a UserQuery into Firestore filters.
func userQuery(base fs.Query, q domain.UserQuery) fs.Query {
	if q.CompanyName != "" {
		base = base.Where(docmodel.FieldCompanyName, "==", q.CompanyName)
	}
	switch len(q.Roles) {
	case 0:
	case 1:
		base = base.Where(docmodel.FieldRole, "==", string(q.Roles[0]))
	default:
		roles := make([]string, 0, len(q.Roles))
		for _, r := range q.Roles {
			roles = append(roles, string(r))
		}
		base = base.Where(docmodel.FieldRole, "in", roles)
	}
	if q.SupervisorID != nil {
		base = base.Where(docmodel.FieldSupervisorID, "==", *q.SupervisorID)
	}
	return base
}

// ListUsers runs a users query filtered by company, role and supervisor.
func (c *Client) ListUsers(ctx context.Context, q domain.UserQuery) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "Firestore.ListUsers")
	defer span.End()
	span.SetAttributes(attribute.String("company.name", q.CompanyName))

	var users []domain.User
	err := c.call(ctx, "list_users", func() error {
		snaps, err := userQuery(c.fs.Collection(collUsers).Query, q).Documents(ctx).GetAll()
		if err != nil {
			return err
		}
		users = make([]domain.User, 0, len(snaps))
		for _, s := range snaps {
			users = append(users, docmodel.User(s.Ref.ID, s.Data()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser patches role and/or supervisor of an existing user.
// Update fails with NotFound when the document is missing.
func (c *Client) UpdateUser(ctx context.Context, userID string, upd domain.UserUpdate) error {
	ctx, span := tracer.Start(ctx, "Firestore.UpdateUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	fields := docmodel.UserUpdateFields(upd)
	if len(fields) == 0 {
		return nil
	}

	err := c.call(ctx, "update_user", func() error {
		_, err := c.userDoc(userID).Update(ctx, updatesOf(fields))
		return err
	})
	if errors.Is(err, errNoDocument) {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return err
}

// BatchUpdateUsers applies every update in one transaction. A missing
// user aborts the whole batch.
func (c *Client) BatchUpdateUsers(ctx context.Context, upds map[string]domain.UserUpdate) error {
	ctx, span := tracer.Start(ctx, "Firestore.BatchUpdateUsers")
	defer span.End()
	span.SetAttributes(attribute.Int("users.count", len(upds)))

	refs := make([]*fs.DocumentRef, 0, len(upds))
	writes := make(map[string][]fs.Update, len(upds))
	for id, upd := range upds {
		fields := docmodel.UserUpdateFields(upd)
		if len(fields) == 0 {
			continue
		}
		refs = append(refs, c.userDoc(id))
		writes[id] = updatesOf(fields)
	}
	if len(refs) == 0 {
		return nil
	}

	return c.call(ctx, "batch_update_users", func() error {
		return c.fs.RunTransaction(ctx, func(ctx context.Context, tx *fs.Transaction) error {
			snaps, err := tx.GetAll(refs)
			if err != nil {
				return err
			}
			for _, s := range snaps {
				if !s.Exists() {
					return &domain.ErrNotFound{Resource: "user", ID: s.Ref.ID}
				}
			}
			for _, ref := range refs {
				if err := tx.Update(ref, writes[ref.ID]); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
