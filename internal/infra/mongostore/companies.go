package mongostore

import (
	"context"
	"errors"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/docmodel"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
)

// GetCompany fetches a company by name.
func (s *Store) GetCompany(ctx context.Context, name string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.name", name))

	return s.findCompany(ctx, "get_company", bson.M{fieldID: name}, &domain.ErrNotFound{Resource: "company", ID: name})
}

// FindCompanyByCode looks a company up by its invite code.
func (s *Store) FindCompanyByCode(ctx context.Context, code string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Mongo.FindCompanyByCode")
	defer span.End()

	return s.findCompany(ctx, "find_company_by_code", bson.M{docmodel.FieldCode: code}, &domain.ErrNotFound{Resource: "company code", ID: code})
}

func (s *Store) findCompany(ctx context.Context, op string, filter bson.M, notFound error) (*domain.Company, error) {
	var company *domain.Company
	err := s.call(ctx, op, func() error {
		f, err := s.findOne(ctx, collCompanies, filter)
		if err != nil {
			return err
		}
		c := docmodel.Company(docID(f), f)
		company = &c
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return company, nil
}

// ListCompanies returns every company.
func (s *Store) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListCompanies")
	defer span.End()

	var companies []domain.Company
	err := s.call(ctx, "list_companies", func() error {
		docs, err := s.findAll(ctx, collCompanies, bson.M{}, nil)
		if err != nil {
			return err
		}
		companies = make([]domain.Company, 0, len(docs))
		for _, f := range docs {
			companies = append(companies, docmodel.Company(docID(f), f))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return companies, nil
}

// SetCompanyCode stores the invite code of an existing company.
func (s *Store) SetCompanyCode(ctx context.Context, name, code string) error {
	ctx, span := tracer.Start(ctx, "Mongo.SetCompanyCode")
	defer span.End()
	span.SetAttributes(attribute.String("company.name", name))

	err := s.call(ctx, "set_company_code", func() error {
		return s.updateExisting(ctx, collCompanies, bson.M{fieldID: name}, bson.M{docmodel.FieldCode: code})
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.ErrNotFound{Resource: "company", ID: name}
	}
	return err
}
