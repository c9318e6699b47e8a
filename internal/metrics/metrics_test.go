package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot(t *testing.T) {
	before := Snapshot()["graphschema_runs_total"]
	Inc(RunsTotal)

	snap := Snapshot()
	assert.Equal(t, before+1, snap["graphschema_runs_total"])
	assert.Contains(t, snap, "graphschema_indexes_created_total")
	for k := range snap {
		assert.Contains(t, k, "graphschema_")
	}
}
