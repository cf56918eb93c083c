package service

import (
	"context"
	"testing"
	"time"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/customers/repository"
	"taller_backend/internal/customers/transport"
	"taller_backend/internal/events"
	"taller_backend/platform/apperr"
	"taller_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	customers map[uuid.UUID]*repository.Customer
}

func newFakeStore() *fakeStore {
	return &fakeStore{customers: make(map[uuid.UUID]*repository.Customer)}
}

func (f *fakeStore) Create(_ context.Context, c *repository.Customer) error {
	for _, existing := range f.customers {
		if existing.Cedula == c.Cedula {
			return apperr.Conflict("a customer with this cedula already exists")
		}
	}
	cp := *c
	f.customers[c.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, apperr.NotFound("customer not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetByCedula(_ context.Context, cedula string) (*repository.Customer, error) {
	for _, c := range f.customers {
		if c.Cedula == cedula {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("customer not found")
}

func (f *fakeStore) List(_ context.Context, _ string) ([]repository.Customer, error) {
	var out []repository.Customer
	for _, c := range f.customers {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, c *repository.Customer) error {
	if _, ok := f.customers[c.ID]; !ok {
		return apperr.NotFound("customer not found")
	}
	cp := *c
	f.customers[c.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.customers[id]; !ok {
		return apperr.NotFound("customer not found")
	}
	delete(f.customers, id)
	return nil
}

type fakeOrderCounter struct{ count int }

func (f *fakeOrderCounter) CountByCustomer(context.Context, uuid.UUID) (int, error) {
	return f.count, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService(store *fakeStore, counter *fakeOrderCounter) (*Service, *recordingBus) {
	bus := &recordingBus{}
	svc := New(store, counter, "CO", bus, logger.New("development"))
	return svc, bus
}

func frontDesk() actor.Actor {
	return actor.Actor{ID: uuid.New(), Role: actor.RoleReceptionist}
}

func admin() actor.Actor {
	return actor.Actor{ID: uuid.New(), Role: actor.RoleAdmin}
}

func TestCreateNormalizesPhone(t *testing.T) {
	store := newFakeStore()
	svc, bus := newTestService(store, &fakeOrderCounter{})

	resp, err := svc.Create(context.Background(), frontDesk(), transport.CreateCustomerRequest{
		FullName: "Ana Torres",
		Cedula:   "1023456789",
		Phone:    "300 123 4567",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Phone == nil || *resp.Phone != "+573001234567" {
		t.Fatalf("phone = %v, want +573001234567", resp.Phone)
	}
	if len(bus.published) != 1 || bus.published[0].EventName() != "customers.changed" {
		t.Fatalf("published = %v", bus.published)
	}
}

func TestCreateDuplicateCedulaConflicts(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeOrderCounter{})

	req := transport.CreateCustomerRequest{FullName: "Ana Torres", Cedula: "1023456789"}
	if _, err := svc.Create(context.Background(), frontDesk(), req); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	req.FullName = "Ana T. homónima"
	_, err := svc.Create(context.Background(), frontDesk(), req)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateByTechnicianForbidden(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeOrderCounter{})

	tech := actor.Actor{ID: uuid.New(), Role: actor.RoleTechnician}
	_, err := svc.Create(context.Background(), tech, transport.CreateCustomerRequest{FullName: "X", Cedula: "1"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestGetByCedula(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeOrderCounter{})

	created, err := svc.Create(context.Background(), frontDesk(), transport.CreateCustomerRequest{
		FullName: "Ana Torres",
		Cedula:   "1023456789",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := svc.GetByCedula(context.Background(), "1023456789")
	if err != nil {
		t.Fatalf("GetByCedula: %v", err)
	}
	if found.ID != created.ID {
		t.Fatal("lookup returned a different customer")
	}

	if _, err := svc.GetByCedula(context.Background(), "9999"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteBlockedWhileOrdersExist(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeOrderCounter{count: 3})

	c := &repository.Customer{ID: uuid.New(), FullName: "Ana", Cedula: "1", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store.customers[c.ID] = c

	err := svc.Delete(context.Background(), admin(), c.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, ok := store.customers[c.ID]; !ok {
		t.Fatal("customer must not be deleted")
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeOrderCounter{})

	c := &repository.Customer{ID: uuid.New(), FullName: "Ana", Cedula: "1"}
	store.customers[c.ID] = c

	if err := svc.Delete(context.Background(), frontDesk(), c.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Delete(context.Background(), admin(), c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestUpdateClearsEmptiedFields(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeOrderCounter{})

	phone := "+573001234567"
	c := &repository.Customer{ID: uuid.New(), FullName: "Ana", Cedula: "1", Phone: &phone}
	store.customers[c.ID] = c

	empty := ""
	resp, err := svc.Update(context.Background(), frontDesk(), c.ID, transport.UpdateCustomerRequest{Phone: &empty})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.Phone != nil {
		t.Fatal("empty phone must clear the field")
	}
}
