package repository

import (
	"fmt"

	"github.com/yourusername/pickem-optimizer/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Job   JobRepository
	Match MatchRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Job:   NewPostgresJobRepository(db),
		Match: NewPostgresMatchRepository(db),
	}, nil
}
