package postgres

import (
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates declaration IDs. ULIDs sort by creation time, so
// listings ordered by ID follow creation order.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}
