package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/credence-core/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrConceptNameRequired = errors.New("name is required")
	ErrConceptExists       = errors.New("concept already exists")
	ErrUnknownEdgeType     = errors.New("unknown edge type")
	ErrEdgeEndpointsEqual  = errors.New("edge endpoints must differ")
	ErrStrengthOutOfRange  = errors.New("inference_strength must be between 0 and 1")
	ErrEdgeConceptNotFound = errors.New("edge references unknown concept")
)

// GraphService owns the concept graph. Every structural write bumps the
// graph version in the same transaction, which invalidates cached trust
// scopes on their next read.
type GraphService struct {
	store  domain.Store
	logger *zap.Logger
}

func NewGraphService(store domain.Store, logger *zap.Logger) *GraphService {
	return &GraphService{store: store, logger: logger}
}

type ConceptInput struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *GraphService) CreateConcept(ctx context.Context, in ConceptInput) (*domain.ConceptNode, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrConceptNameRequired
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = slugify(in.Name)
	}

	existing, err := s.store.Graph().GetConcept(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConceptExists
	}

	concept := &domain.ConceptNode{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.store.WithTransaction(ctx, func(tx domain.Store) error {
		if err := tx.Graph().CreateConcept(ctx, concept); err != nil {
			return err
		}
		_, err := tx.Versions().BumpGraphVersion(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("concept created", zap.String("concept_id", concept.ID))
	return concept, nil
}

func (s *GraphService) GetConcept(ctx context.Context, id string) (*domain.ConceptNode, error) {
	if id == "" {
		return nil, ErrConceptIDRequired
	}
	concept, err := s.store.Graph().GetConcept(ctx, id)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, ErrConceptNotFound
	}
	return concept, nil
}

func (s *GraphService) ListConcepts(ctx context.Context) ([]domain.ConceptNode, error) {
	return s.store.Graph().ListConcepts(ctx)
}

type EdgeInput struct {
	FromConceptID     string  `json:"from_concept_id"`
	ToConceptID       string  `json:"to_concept_id"`
	Type              string  `json:"type"`
	InferenceStrength float64 `json:"inference_strength"`
}

func (s *GraphService) CreateEdge(ctx context.Context, in EdgeInput) (*domain.RelationshipEdge, error) {
	if in.FromConceptID == "" || in.ToConceptID == "" {
		return nil, ErrConceptIDRequired
	}
	if in.FromConceptID == in.ToConceptID {
		return nil, ErrEdgeEndpointsEqual
	}
	if !domain.ValidEdgeType(in.Type) {
		return nil, ErrUnknownEdgeType
	}
	if in.InferenceStrength <= 0 || in.InferenceStrength > 1 {
		return nil, ErrStrengthOutOfRange
	}

	for _, id := range []string{in.FromConceptID, in.ToConceptID} {
		concept, err := s.store.Graph().GetConcept(ctx, id)
		if err != nil {
			return nil, err
		}
		if concept == nil {
			return nil, ErrEdgeConceptNotFound
		}
	}

	edge := &domain.RelationshipEdge{
		ID:                uuid.New(),
		From:              in.FromConceptID,
		To:                in.ToConceptID,
		Type:              domain.EdgeType(in.Type),
		InferenceStrength: in.InferenceStrength,
		CreatedAt:         time.Now().UTC(),
	}

	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		if err := tx.Graph().CreateEdge(ctx, edge); err != nil {
			return err
		}
		_, err := tx.Versions().BumpGraphVersion(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("edge created",
		zap.String("from", edge.From),
		zap.String("to", edge.To),
		zap.String("type", string(edge.Type)))
	return edge, nil
}

func (s *GraphService) ListEdges(ctx context.Context) ([]domain.RelationshipEdge, error) {
	return s.store.Graph().ListEdges(ctx)
}

func slugify(name string) string {
	var b strings.Builder
	prevDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
