package scanner

import (
	"cmp"
	"math"
	"slices"

	"github.com/ajitpratap0/graphschema/internal/models"
)

// Weigh computes dependency weights and returns the mapped entities sorted
// by descending weight, so every class is materialized before the classes
// that extend it. Abstract roots weigh the most, then other abstract
// classes; each ancestor costs one. Equal weights keep scan order.
func Weigh(entities []*models.Entity) []*models.Entity {
	var mapped []*models.Entity
	for _, e := range entities {
		if !e.Mapped {
			continue
		}
		w := 0
		if e.Abstract && e.Root {
			w = math.MaxInt
		} else if e.Abstract {
			w = math.MaxInt - 1
		}
		e.Weight = w - len(e.Ancestors)
		mapped = append(mapped, e)
	}
	slices.SortStableFunc(mapped, func(a, b *models.Entity) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	return mapped
}
