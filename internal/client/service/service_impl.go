package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/client/domain"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/config"
	dbpkg "github.com/smallbiznis/gescom/pkg/db"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPaymentTermsDays = 365

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   domain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	defaultTerms int
	repo         domain.Repository
}

func New(p Params) domain.Service {
	terms := p.Config.Billing.DefaultPaymentTermsDays
	if terms <= 0 {
		terms = 30
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("client.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		defaultTerms: terms,
		repo:         p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return domain.Client{}, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.LegalName)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Client{}, err
	}

	terms := s.defaultTerms
	if req.PaymentTermsDays != nil {
		if !validTerms(*req.PaymentTermsDays) {
			return domain.Client{}, domain.ErrInvalidPaymentTerms
		}
		terms = *req.PaymentTermsDays
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = domain.MethodVirement
	}
	if !domain.ValidPaymentMethod(method) {
		return domain.Client{}, domain.ErrInvalidPaymentMethod
	}

	now := s.clock.Now()
	client := domain.Client{
		ID:               s.genID.Generate(),
		Code:             code,
		LegalName:        name,
		Email:            email,
		Phone:            strings.TrimSpace(req.Phone),
		Address:          strings.TrimSpace(req.Address),
		PostalCode:       strings.TrimSpace(req.PostalCode),
		City:             strings.TrimSpace(req.City),
		PaymentTermsDays: terms,
		PaymentMethod:    method,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.Client{}, domain.ErrDuplicateCode.WithEntity(code)
		}
		return domain.Client{}, err
	}

	s.log.Info("client created", zap.String("client_id", client.ID.String()), zap.String("code", code))
	return client, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateClientRequest) (domain.Client, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Client{}, err
	}
	client, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}

	if req.LegalName != nil {
		name := strings.TrimSpace(*req.LegalName)
		if name == "" {
			return domain.Client{}, domain.ErrInvalidName
		}
		client.LegalName = name
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return domain.Client{}, err
		}
		client.Email = email
	}
	if req.Phone != nil {
		client.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		client.Address = strings.TrimSpace(*req.Address)
	}
	if req.PostalCode != nil {
		client.PostalCode = strings.TrimSpace(*req.PostalCode)
	}
	if req.City != nil {
		client.City = strings.TrimSpace(*req.City)
	}
	if req.PaymentTermsDays != nil {
		if !validTerms(*req.PaymentTermsDays) {
			return domain.Client{}, domain.ErrInvalidPaymentTerms
		}
		client.PaymentTermsDays = *req.PaymentTermsDays
	}
	if req.PaymentMethod != nil {
		method := strings.ToLower(strings.TrimSpace(*req.PaymentMethod))
		if !domain.ValidPaymentMethod(method) {
			return domain.Client{}, domain.ErrInvalidPaymentMethod
		}
		client.PaymentMethod = method
	}
	if req.Active != nil {
		client.Active = *req.Active
	}
	client.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, client); err != nil {
		return domain.Client{}, err
	}
	return *client, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Client, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Client{}, err
	}
	client, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}
	return *client, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	items, err := s.repo.List(ctx, s.db, domain.ListClientFilter{
		Query:  strings.TrimSpace(req.Query),
		Active: req.Active,
	}, req.PageToken)
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pagination.PageSize, func(client *domain.Client) string {
		return pagination.TokenForID(client.ID.String())
	})

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		clients = append(clients, *item)
	}
	return domain.ListClientResponse{PageInfo: *pageInfo, Clients: clients}, nil
}

func (s *Service) mustFind(ctx context.Context, id snowflake.ID) (*domain.Client, error) {
	client, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrNotFound.WithEntity(id.String())
	}
	return client, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeEmail(value string) (string, error) {
	email := strings.TrimSpace(value)
	if email != "" && !strings.Contains(email, "@") {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func validTerms(days int) bool {
	return days >= 0 && days <= maxPaymentTermsDays
}
