// Package service implements customer management.
package service

import (
	"context"
	"fmt"
	"time"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/customers/repository"
	"taller_backend/internal/customers/transport"
	"taller_backend/internal/events"
	"taller_backend/platform/apperr"
	"taller_backend/platform/logger"
	"taller_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the persistence port for customers.
type Store interface {
	Create(ctx context.Context, c *repository.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Customer, error)
	GetByCedula(ctx context.Context, cedula string) (*repository.Customer, error)
	List(ctx context.Context, search string) ([]repository.Customer, error)
	Update(ctx context.Context, c *repository.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderCounter reports how many orders reference a customer. Implemented by
// the orders repository.
type OrderCounter interface {
	CountByCustomer(ctx context.Context, customerID uuid.UUID) (int, error)
}

// Service implements customer operations.
type Service struct {
	store  Store
	orders OrderCounter
	region string
	bus    events.Bus
	log    *logger.Logger
}

// New creates a new customers service.
func New(store Store, orders OrderCounter, region string, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, orders: orders, region: region, bus: bus, log: log}
}

// Create registers a customer. Front desk staff only.
func (s *Service) Create(ctx context.Context, act actor.Actor, req transport.CreateCustomerRequest) (*transport.CustomerResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can manage customers")
	}

	now := time.Now()
	c := &repository.Customer{
		ID:        uuid.New(),
		FullName:  req.FullName,
		Cedula:    req.Cedula,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Phone != "" {
		normalized := phone.NormalizeE164(req.Phone, s.region)
		c.Phone = &normalized
	}
	if req.Email != "" {
		c.Email = &req.Email
	}
	if req.Address != "" {
		c.Address = &req.Address
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}

	s.publishChanged(ctx, c.ID, "created")
	resp := toResponse(c)
	return &resp, nil
}

// GetByID returns a customer.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.CustomerResponse, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(c)
	return &resp, nil
}

// GetByCedula looks a customer up by national ID for the intake form.
func (s *Service) GetByCedula(ctx context.Context, cedula string) (*transport.CustomerResponse, error) {
	if cedula == "" {
		return nil, apperr.Validation("cedula is required")
	}
	c, err := s.store.GetByCedula(ctx, cedula)
	if err != nil {
		return nil, err
	}
	resp := toResponse(c)
	return &resp, nil
}

// List returns customers matching the search term.
func (s *Service) List(ctx context.Context, req transport.ListCustomersRequest) ([]transport.CustomerResponse, error) {
	customers, err := s.store.List(ctx, req.Search)
	if err != nil {
		return nil, err
	}

	out := make([]transport.CustomerResponse, 0, len(customers))
	for i := range customers {
		out = append(out, toResponse(&customers[i]))
	}
	return out, nil
}

// Update applies a partial update. Front desk staff only.
func (s *Service) Update(ctx context.Context, act actor.Actor, id uuid.UUID, req transport.UpdateCustomerRequest) (*transport.CustomerResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can manage customers")
	}

	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		c.FullName = *req.FullName
	}
	if req.Cedula != nil {
		c.Cedula = *req.Cedula
	}
	if req.Phone != nil {
		if *req.Phone == "" {
			c.Phone = nil
		} else {
			normalized := phone.NormalizeE164(*req.Phone, s.region)
			c.Phone = &normalized
		}
	}
	if req.Email != nil {
		if *req.Email == "" {
			c.Email = nil
		} else {
			c.Email = req.Email
		}
	}
	if req.Address != nil {
		if *req.Address == "" {
			c.Address = nil
		} else {
			c.Address = req.Address
		}
	}

	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}

	s.publishChanged(ctx, c.ID, "updated")
	resp := toResponse(c)
	return &resp, nil
}

// Delete removes a customer. Admin only, and blocked while any service order
// references them.
func (s *Service) Delete(ctx context.Context, act actor.Actor, id uuid.UUID) error {
	if !act.Is(actor.RoleAdmin) {
		return apperr.Forbidden("only administrators can delete customers")
	}

	count, err := s.orders.CountByCustomer(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict(fmt.Sprintf("customer has %d service orders", count))
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.publishChanged(ctx, id, "deleted")
	return nil
}

func (s *Service) publishChanged(ctx context.Context, customerID uuid.UUID, action string) {
	s.bus.Publish(ctx, events.CustomerChanged{
		BaseEvent:  events.NewBaseEvent(),
		CustomerID: customerID,
		Action:     action,
	})
}

func toResponse(c *repository.Customer) transport.CustomerResponse {
	return transport.CustomerResponse{
		ID:        c.ID,
		FullName:  c.FullName,
		Cedula:    c.Cedula,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
