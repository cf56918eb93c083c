package notification

// The realtime protocol is deliberately payload-free: clients receive the
// name of a changed table and refetch through the regular API, so a missed
// or duplicated notification can never corrupt client state.

// Table names pushed to realtime clients.
const (
	TableServiceOrders   = "service_orders"
	TableExternalRepairs = "external_repairs"
	TableWorkshops       = "external_workshops"
	TableCustomers       = "customers"
	TableSettings        = "company_settings"
	TableProfiles        = "profiles"
)

var syncPolicy = map[string][]string{
	"orders.created":        {TableServiceOrders},
	"orders.status.changed": {TableServiceOrders},
	"orders.completed":      {TableServiceOrders},
	"orders.deleted":        {TableServiceOrders},

	// Repair episodes are embedded in the order view, so both tables refetch.
	"outsourcing.repair.changed":   {TableExternalRepairs, TableServiceOrders},
	"outsourcing.workshop.changed": {TableWorkshops},

	"customers.changed": {TableCustomers},
	"settings.changed":  {TableSettings},
	"profiles.changed":  {TableProfiles},
}

// TablesFor maps a domain event to the tables realtime clients must refetch.
// Unknown events map to nothing.
func TablesFor(eventName string) []string {
	return syncPolicy[eventName]
}

// SubscribedEvents lists every event name the realtime bridge listens to.
func SubscribedEvents() []string {
	names := make([]string, 0, len(syncPolicy))
	for name := range syncPolicy {
		names = append(names, name)
	}
	return names
}
