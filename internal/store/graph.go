package store

import (
	"context"
	"errors"

	"github.com/credence-core/credence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type GraphStore struct {
	db DB
}

func (s *GraphStore) CreateConcept(ctx context.Context, c *domain.ConceptNode) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO concepts (id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		c.ID, c.Name, c.Description,
	).Scan(&c.CreatedAt)
}

func (s *GraphStore) GetConcept(ctx context.Context, id string) (*domain.ConceptNode, error) {
	c := &domain.ConceptNode{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM concepts WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (s *GraphStore) ListConcepts(ctx context.Context) ([]domain.ConceptNode, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, created_at FROM concepts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concepts []domain.ConceptNode
	for rows.Next() {
		var c domain.ConceptNode
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

func (s *GraphStore) CreateEdge(ctx context.Context, e *domain.RelationshipEdge) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO concept_edges (id, from_id, to_id, edge_type, inference_strength)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (from_id, to_id, edge_type) DO UPDATE
		 SET inference_strength = EXCLUDED.inference_strength
		 RETURNING id, created_at`,
		e.ID, e.From, e.To, e.Type, e.InferenceStrength,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *GraphStore) ListEdges(ctx context.Context) ([]domain.RelationshipEdge, error) {
	return s.queryEdges(ctx,
		`SELECT id, from_id, to_id, edge_type, inference_strength, created_at
		 FROM concept_edges ORDER BY from_id, to_id`)
}

func (s *GraphStore) GetEdgesFrom(ctx context.Context, conceptID string) ([]domain.RelationshipEdge, error) {
	return s.queryEdges(ctx,
		`SELECT id, from_id, to_id, edge_type, inference_strength, created_at
		 FROM concept_edges WHERE from_id = $1 ORDER BY to_id`, conceptID)
}

func (s *GraphStore) GetEdgesTo(ctx context.Context, conceptID string) ([]domain.RelationshipEdge, error) {
	return s.queryEdges(ctx,
		`SELECT id, from_id, to_id, edge_type, inference_strength, created_at
		 FROM concept_edges WHERE to_id = $1 ORDER BY from_id`, conceptID)
}

func (s *GraphStore) CountDownstreamDependents(ctx context.Context, conceptID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM concept_edges WHERE from_id = $1 AND edge_type = $2`,
		conceptID, domain.EdgePrerequisite,
	).Scan(&count)
	return count, err
}

func (s *GraphStore) queryEdges(ctx context.Context, query string, args ...any) ([]domain.RelationshipEdge, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.RelationshipEdge
	for rows.Next() {
		var e domain.RelationshipEdge
		if err := rows.Scan(&e.ID, &e.From, &e.To, &e.Type, &e.InferenceStrength, &e.CreatedAt); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
