package service

import (
	"context"

	"rentalhub/internal/apierror"
	"rentalhub/internal/dto"
	"rentalhub/internal/model"
	"rentalhub/internal/repository"

	"github.com/google/uuid"
)

// ── Clients ──────────────────────────────────────────────────────────────────

type ClientService interface {
	Create(ctx context.Context, actor Actor, req dto.ClientRequest) (*dto.ClientResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ClientResponse, error)
	List(ctx context.Context, search string) ([]dto.ClientResponse, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.ClientRequest) (*dto.ClientResponse, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type clientService struct {
	repo  repository.ClientRepository
	audit AuditService
}

func NewClientService(repo repository.ClientRepository, audit AuditService) ClientService {
	return &clientService{repo: repo, audit: audit}
}

func applyClient(c *model.Client, req dto.ClientRequest) {
	c.FirstName = req.FirstName
	c.LastName = req.LastName
	c.Email = req.Email
	c.Phone = req.Phone
	c.CompanyName = req.CompanyName
	c.TaxID = req.TaxID
	c.Address = req.Address
	c.Notes = req.Notes
}

func (s *clientService) Create(ctx context.Context, actor Actor, req dto.ClientRequest) (*dto.ClientResponse, error) {
	c := &model.Client{}
	applyClient(c, req)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, writeErr(err, "client")
	}
	Collaborators{Audit: s.audit}.record(ctx, actor, "client.create", c.FullName(), map[string]interface{}{"id": c.ID})
	resp := clientToResponse(c)
	return &resp, nil
}

func (s *clientService) Get(ctx context.Context, id uuid.UUID) (*dto.ClientResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "client")
	}
	resp := clientToResponse(c)
	return &resp, nil
}

func (s *clientService) List(ctx context.Context, search string) ([]dto.ClientResponse, error) {
	list, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, apierror.Storage("list clients", err)
	}
	resp := make([]dto.ClientResponse, len(list))
	for i := range list {
		resp[i] = clientToResponse(&list[i])
	}
	return resp, nil
}

func (s *clientService) Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.ClientRequest) (*dto.ClientResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "client")
	}
	applyClient(c, req)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, writeErr(err, "client")
	}
	Collaborators{Audit: s.audit}.record(ctx, actor, "client.update", c.FullName(), map[string]interface{}{"id": c.ID})
	resp := clientToResponse(c)
	return &resp, nil
}

// Delete fails with 409 while reservations or invoices still reference the
// client.
func (s *clientService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return apierror.Conflict("client still has reservations or invoices")
		}
		return apierror.Storage("delete client", err)
	}
	if !deleted {
		return apierror.NotFound("client not found")
	}
	Collaborators{Audit: s.audit}.record(ctx, actor, "client.delete", id.String(), nil)
	return nil
}

// ── Attractions ──────────────────────────────────────────────────────────────

type AttractionService interface {
	Create(ctx context.Context, actor Actor, req dto.AttractionRequest) (*dto.AttractionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.AttractionResponse, error)
	List(ctx context.Context, includeInactive bool) ([]dto.AttractionResponse, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.AttractionRequest) (*dto.AttractionResponse, error)
	Deactivate(ctx context.Context, actor Actor, id uuid.UUID) error
}

type attractionService struct {
	repo  repository.AttractionRepository
	audit AuditService
}

func NewAttractionService(repo repository.AttractionRepository, audit AuditService) AttractionService {
	return &attractionService{repo: repo, audit: audit}
}

func applyAttraction(a *model.Attraction, req dto.AttractionRequest) {
	a.Name = req.Name
	a.Description = req.Description
	a.Width = req.Width
	a.Length = req.Length
	a.Height = req.Height
	a.DailyPrice = req.DailyPrice
	if req.Active != nil {
		a.Active = *req.Active
	}
}

func (s *attractionService) Create(ctx context.Context, actor Actor, req dto.AttractionRequest) (*dto.AttractionResponse, error) {
	a := &model.Attraction{Active: true}
	applyAttraction(a, req)
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, writeErr(err, "attraction")
	}
	Collaborators{Audit: s.audit}.record(ctx, actor, "attraction.create", a.Name, map[string]interface{}{"id": a.ID})
	resp := attractionToResponse(a)
	return &resp, nil
}

func (s *attractionService) Get(ctx context.Context, id uuid.UUID) (*dto.AttractionResponse, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "attraction")
	}
	resp := attractionToResponse(a)
	return &resp, nil
}

func (s *attractionService) List(ctx context.Context, includeInactive bool) ([]dto.AttractionResponse, error) {
	list, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, apierror.Storage("list attractions", err)
	}
	resp := make([]dto.AttractionResponse, len(list))
	for i := range list {
		resp[i] = attractionToResponse(&list[i])
	}
	return resp, nil
}

func (s *attractionService) Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.AttractionRequest) (*dto.AttractionResponse, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "attraction")
	}
	applyAttraction(a, req)
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, writeErr(err, "attraction")
	}
	Collaborators{Audit: s.audit}.record(ctx, actor, "attraction.update", a.Name, map[string]interface{}{"id": a.ID})
	resp := attractionToResponse(a)
	return &resp, nil
}

// Deactivate hides the attraction from the default listing. Existing
// reservations keep referencing it.
func (s *attractionService) Deactivate(ctx context.Context, actor Actor, id uuid.UUID) error {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupErr(err, "attraction")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return apierror.Storage("deactivate attraction", err)
	}
	Collaborators{Audit: s.audit}.record(ctx, actor, "attraction.deactivate", a.Name, map[string]interface{}{"id": id})
	return nil
}
