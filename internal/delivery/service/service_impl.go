package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/config"
	"github.com/smallbiznis/gescom/internal/delivery/domain"
	"github.com/smallbiznis/gescom/internal/lock"
	"github.com/smallbiznis/gescom/internal/numbering"
	obscontext "github.com/smallbiznis/gescom/internal/observability/context"
	obslogger "github.com/smallbiznis/gescom/internal/observability/logger"
	orderdomain "github.com/smallbiznis/gescom/internal/order/domain"
	orderservice "github.com/smallbiznis/gescom/internal/order/service"
	"github.com/smallbiznis/gescom/internal/providers/pdf"
	"github.com/smallbiznis/gescom/pkg/db"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPackages = 999

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	GenID   *snowflake.Node
	Clock   clock.Clock
	Locker  lock.Locker
	Repo    domain.Repository
	Orders  orderdomain.Service
	Clients clientdomain.Repository
	PDF     pdf.Provider
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	seller  config.SellerConfig
	genID   *snowflake.Node
	clock   clock.Clock
	locker  lock.Locker
	repo    domain.Repository
	orders  orderdomain.Service
	clients clientdomain.Repository
	pdf     pdf.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("delivery.service"),
		seller:  p.Config.Seller,
		genID:   p.GenID,
		clock:   p.Clock,
		locker:  p.Locker,
		repo:    p.Repo,
		orders:  p.Orders,
		clients: p.Clients,
		pdf:     p.PDF,
	}
}

// Ship prints the delivery note of a prepared order and moves the order to
// expediee. Every line ships in full: the reservation made at validation
// already covers it.
func (s *Service) Ship(ctx context.Context, req domain.ShipRequest) (domain.Note, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.Note{}, err
	}
	packages := req.Packages
	if packages == 0 {
		packages = 1
	}
	if packages < 0 || packages > maxPackages {
		return domain.Note{}, domain.ErrInvalidPackages.WithMessage(strconv.Itoa(req.Packages))
	}

	release, err := s.locker.Acquire(ctx, orderservice.LockKey(orderID), numbering.Delivery.LockKey())
	if err != nil {
		return domain.Note{}, err
	}
	defer release()

	var note domain.Note
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orders.FulfilTx(ctx, tx, orderID, orderdomain.StatusShipped)
		if err != nil {
			return err
		}
		client, err := s.clients.FindByID(ctx, tx, order.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return clientdomain.ErrNotFound.WithEntity(order.ClientID.String())
		}

		now := s.clock.Now()
		seq, numero, err := numbering.Delivery.Next(ctx, tx, now)
		if err != nil {
			return err
		}
		note = domain.Note{
			ID:               s.genID.Generate(),
			Seq:              seq,
			Numero:           numero,
			OrderID:          order.ID,
			OrderNumero:      order.Numero,
			ClientID:         client.ID,
			ShipToName:       client.LegalName,
			ShipToAddress:    client.Address,
			ShipToPostalCode: client.PostalCode,
			ShipToCity:       client.City,
			Carrier:          strings.TrimSpace(req.Carrier),
			Packages:         packages,
			Notes:            strings.TrimSpace(req.Notes),
			ShippedAt:        now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		for _, line := range order.Lines {
			note.Lines = append(note.Lines, domain.Line{
				ID:          s.genID.Generate(),
				NoteID:      note.ID,
				Position:    len(note.Lines) + 1,
				ArticleID:   line.ArticleID,
				Reference:   line.Reference,
				Designation: line.Designation,
				Quantity:    line.Quantity,
			})
		}

		if err := s.repo.Insert(ctx, tx, &note); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyShipped.WithEntity(order.Numero)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Note{}, err
	}

	obslogger.WithContext(obscontext.WithDocument(ctx, note.OrderNumero), s.log).Info("order shipped",
		zap.String("delivery_note", note.Numero),
		zap.Int("lines", len(note.Lines)),
		zap.Int("packages", note.Packages),
	)
	return note, nil
}

// Deliver records the client's receipt and moves the order to livree.
func (s *Service) Deliver(ctx context.Context, req domain.DeliverRequest) (domain.Note, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Note{}, err
	}
	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Note{}, err
	}
	if current == nil {
		return domain.Note{}, domain.ErrNotFound.WithEntity(id.String())
	}

	release, err := s.locker.Acquire(ctx, orderservice.LockKey(current.OrderID))
	if err != nil {
		return domain.Note{}, err
	}
	defer release()

	var note *domain.Note
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		note, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if note == nil {
			return domain.ErrNotFound.WithEntity(id.String())
		}
		if note.Delivered() {
			return domain.ErrAlreadyDelivered.WithEntity(note.Numero)
		}
		if _, err := s.orders.FulfilTx(ctx, tx, note.OrderID, orderdomain.StatusDelivered); err != nil {
			return err
		}

		now := s.clock.Now()
		note.DeliveredAt = &now
		note.ReceivedBy = strings.TrimSpace(req.ReceivedBy)
		note.UpdatedAt = now
		return s.repo.MarkDelivered(ctx, tx, note)
	})
	if err != nil {
		return domain.Note{}, err
	}

	obslogger.WithContext(obscontext.WithDocument(ctx, note.OrderNumero), s.log).Info("order delivered",
		zap.String("delivery_note", note.Numero),
	)
	return *note, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Note, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Note{}, err
	}
	note, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Note{}, err
	}
	if note == nil {
		return domain.Note{}, domain.ErrNotFound.WithEntity(id.String())
	}
	return *note, nil
}

func (s *Service) List(ctx context.Context, req domain.ListNoteRequest) (domain.ListNoteResponse, error) {
	var filter domain.ListNoteFilter
	if strings.TrimSpace(req.ClientID) != "" {
		id, err := parseID(req.ClientID)
		if err != nil {
			return domain.ListNoteResponse{}, err
		}
		filter.ClientID = id
	}
	if strings.TrimSpace(req.OrderID) != "" {
		id, err := parseID(req.OrderID)
		if err != nil {
			return domain.ListNoteResponse{}, err
		}
		filter.OrderID = id
	}

	items, err := s.repo.List(ctx, s.db, filter, req.PageToken)
	if err != nil {
		return domain.ListNoteResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, pagination.PageSize, func(note *domain.Note) string {
		return pagination.TokenForID(note.ID.String())
	})

	notes := make([]domain.Note, 0, len(items))
	for _, item := range items {
		notes = append(notes, *item)
	}
	return domain.ListNoteResponse{PageInfo: *pageInfo, Notes: notes}, nil
}

func (s *Service) ExportPDF(ctx context.Context, rawID string) (domain.PDFExport, error) {
	note, err := s.GetByID(ctx, rawID)
	if err != nil {
		return domain.PDFExport{}, err
	}

	doc := pdf.DeliveryDocument{
		Numero:      note.Numero,
		OrderNumero: note.OrderNumero,
		ShippedDate: note.ShippedAt.UTC().Format("02/01/2006"),
		Carrier:     note.Carrier,
		Packages:    strconv.Itoa(note.Packages),
		Notes:       note.Notes,
		Seller: pdf.Party{
			Name:  s.seller.Name,
			Lines: []string{s.seller.Address, strings.TrimSpace(s.seller.PostalCode + " " + s.seller.City)},
		},
		Client: pdf.Party{
			Name:  note.ShipToName,
			Lines: []string{note.ShipToAddress, strings.TrimSpace(note.ShipToPostalCode + " " + note.ShipToCity)},
		},
	}
	for _, line := range note.Lines {
		doc.Lines = append(doc.Lines, pdf.DeliveryLine{
			Reference:   line.Reference,
			Designation: line.Designation,
			Quantity:    strconv.FormatInt(line.Quantity, 10),
		})
	}

	content, err := s.pdf.RenderDeliveryNote(ctx, doc)
	if err != nil {
		return domain.PDFExport{}, err
	}
	return domain.PDFExport{Filename: note.Numero + ".pdf", Content: content}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
