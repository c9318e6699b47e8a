// Package metrics provides application-level counters using stdlib expvar.
// The admin server exposes them at /debug/vars; Snapshot reads them in-process.
package metrics

import (
	"expvar"
	"strings"
)

// Reconciliation counters.
var (
	RunsTotal             = expvar.NewInt("graphschema_runs_total")
	EntitiesScanned       = expvar.NewInt("graphschema_entities_scanned_total")
	ClassesCreated        = expvar.NewInt("graphschema_classes_created_total")
	ClassAttributesSet    = expvar.NewInt("graphschema_class_attributes_set_total")
	PropertiesCreated     = expvar.NewInt("graphschema_properties_created_total")
	PropertiesRetyped     = expvar.NewInt("graphschema_properties_retyped_total")
	PropertyAttributesSet = expvar.NewInt("graphschema_property_attributes_set_total")
	PropertiesDropped     = expvar.NewInt("graphschema_properties_dropped_total")
	IndexesCreated        = expvar.NewInt("graphschema_indexes_created_total")
	IndexFailures         = expvar.NewInt("graphschema_index_failures_total")
	MigrationsApplied     = expvar.NewInt("graphschema_migrations_applied_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }

// Snapshot returns the current value of every graphschema counter.
func Snapshot() map[string]int64 {
	out := make(map[string]int64)
	expvar.Do(func(kv expvar.KeyValue) {
		if v, ok := kv.Value.(*expvar.Int); ok && strings.HasPrefix(kv.Key, "graphschema_") {
			out[kv.Key] = v.Value()
		}
	})
	return out
}
