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
// Companies (implements port.CompanyStore)
// ============================================================

// GetCompany fetches companies/{name}.
func (c *Client) GetCompany(ctx context.Context, name string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Firestore.GetCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.name", name))

	var company *domain.Company
	err := c.call(ctx, "get_company", func() error {
		f, err := getData(ctx, c.fs.Collection(collCompanies).Doc(name))
		if err != nil {
			return err
		}
		co := docmodel.Company(name, f)
		company = &co
		return nil
	})
	if errors.Is(err, errNoDocument) {
		return nil, &domain.ErrNotFound{Resource: "company", ID: name}
	}
	if err != nil {
		return nil, err
	}
	return company, nil
}

// FindCompanyByCode looks a company up by its invite code.
func (c *Client) FindCompanyByCode(ctx context.Context, code string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Firestore.FindCompanyByCode")
	defer span.End()

	var company *domain.Company
	err := c.call(ctx, "find_company_by_code", func() error {
		snaps, err := c.fs.Collection(collCompanies).
			Where(docmodel.FieldCode, "==", code).
			Limit(1).
			Documents(ctx).GetAll()
		if err != nil {
			return err
		}
		if len(snaps) > 0 {
			co := docmodel.Company(snaps[0].Ref.ID, snaps[0].Data())
			company = &co
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, &domain.ErrNotFound{Resource: "company code", ID: code}
	}
	return company, nil
}

// ListCompanies returns every company document.
func (c *Client) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Firestore.ListCompanies")
	defer span.End()

	var companies []domain.Company
	err := c.call(ctx, "list_companies", func() error {
		snaps, err := c.fs.Collection(collCompanies).Documents(ctx).GetAll()
		if err != nil {
			return err
		}
		companies = make([]domain.Company, 0, len(snaps))
		for _, s := range snaps {
			companies = append(companies, docmodel.Company(s.Ref.ID, s.Data()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return companies, nil
}

// SetCompanyCode stores the invite code of an existing company.
func (c *Client) SetCompanyCode(ctx context.Context, name, code string) error {
	ctx, span := tracer.Start(ctx, "Firestore.SetCompanyCode")
	defer span.End()
	span.SetAttributes(attribute.String("company.name", name))

	err := c.call(ctx, "set_company_code", func() error {
		_, err := c.fs.Collection(collCompanies).Doc(name).Update(ctx,
			[]fs.Update{{Path: docmodel.FieldCode, Value: code}})
		return err
	})
	if errors.Is(err, errNoDocument) {
		return &domain.ErrNotFound{Resource: "company", ID: name}
	}
	return err
}
