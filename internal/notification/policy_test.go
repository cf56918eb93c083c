package notification

import (
	"reflect"
	"testing"

	"taller_backend/internal/events"
)

func TestTablesForCoversAllDomainEvents(t *testing.T) {
	cases := []struct {
		event  events.Event
		tables []string
	}{
		{events.OrderCreated{}, []string{TableServiceOrders}},
		{events.OrderStatusChanged{}, []string{TableServiceOrders}},
		{events.OrderCompleted{}, []string{TableServiceOrders}},
		{events.OrderDeleted{}, []string{TableServiceOrders}},
		{events.ExternalRepairChanged{}, []string{TableExternalRepairs, TableServiceOrders}},
		{events.WorkshopChanged{}, []string{TableWorkshops}},
		{events.CustomerChanged{}, []string{TableCustomers}},
		{events.SettingsChanged{}, []string{TableSettings}},
		{events.ProfileChanged{}, []string{TableProfiles}},
	}

	for _, tc := range cases {
		got := TablesFor(tc.event.EventName())
		if !reflect.DeepEqual(got, tc.tables) {
			t.Fatalf("TablesFor(%s) = %v, want %v", tc.event.EventName(), got, tc.tables)
		}
	}
}

func TestTablesForUnknownEvent(t *testing.T) {
	if got := TablesFor("orders.archived"); got != nil {
		t.Fatalf("unknown event mapped to %v, want nil", got)
	}
}

func TestRepairChangesRefetchTheOrderView(t *testing.T) {
	tables := TablesFor(events.ExternalRepairChanged{}.EventName())

	found := false
	for _, table := range tables {
		if table == TableServiceOrders {
			found = true
		}
	}
	if !found {
		t.Fatal("repair changes must also refetch service_orders: the active episode is embedded in the order view")
	}
}
