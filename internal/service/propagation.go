package service

import (
	"github.com/credence-core/credence/internal/domain"
)

const (
	// PropagationFloor halts a branch once the attenuated signal drops
	// below it.
	PropagationFloor = 0.05
	// HopAttenuation halves the signal per hop beyond the first.
	HopAttenuation = 0.5
	// FailureAmplification: failure travels harder than success of equal
	// source confidence.
	FailureAmplification = 1.5
	// PartialSignalWeight scales the base signal of a partial result.
	PartialSignalWeight = 0.5
	// MinStateDelta is the smallest confidence movement that counts as a
	// state change. A signal that moves nothing halts its branch even when
	// mathematically above the floor.
	MinStateDelta = 0.001
)

// Propagator walks verification signals through the concept graph. It is a
// pure in-memory traversal over a preloaded adjacency and an owned
// accumulator map of per-concept states; it performs no I/O.
type Propagator struct {
	edgesFrom map[string][]domain.RelationshipEdge
}

func NewPropagator(edges []domain.RelationshipEdge) *Propagator {
	byFrom := make(map[string][]domain.RelationshipEdge)
	for _, e := range edges {
		byFrom[e.From] = append(byFrom[e.From], e)
	}
	return &Propagator{edgesFrom: byFrom}
}

type frontierItem struct {
	conceptID string
	signal    float64
	depth     int
	parent    string
}

// Apply ripples one event outward from its source concept, mutating states
// in place. source must already reflect the event (scored); states is the
// replay accumulator for the whole scope. The walk:
//
//   - raises targets at most to inferred, never verified, and never
//     downgrades a verified or contested target on a success signal
//   - attenuates geometrically per hop and stops below PropagationFloor
//   - amplifies failure 1.5x and applies it as a confidence reduction,
//     contesting verified targets and reverting zeroed inferred targets
//   - halts any branch whose signal no longer changes its target
func (p *Propagator) Apply(event *domain.VerificationEvent, source *domain.TrustState, states map[string]*domain.TrustState) {
	base := p.baseSignal(event, source)
	if base <= 0 {
		return
	}

	visited := map[string]bool{event.ConceptID: true}
	queue := p.expand(event.ConceptID, base, 0, visited)

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.signal < PropagationFloor {
			continue
		}

		target := ensureState(states, event.PersonID, item.conceptID)
		if !applySignal(target, event, item.signal, parentOf(item, event)) {
			continue
		}

		queue = append(queue, p.expand(item.conceptID, item.signal, item.depth, visited)...)
	}
}

// baseSignal is the magnitude leaving the source, before any attenuation.
func (p *Propagator) baseSignal(event *domain.VerificationEvent, source *domain.TrustState) float64 {
	bonus := 0.0
	if n := len(source.ModalitiesTested); n > 1 {
		bonus = CrossModalityBonus * float64(n-1)
	}

	switch event.Result {
	case domain.ResultDemonstrated:
		return source.Confidence + bonus
	case domain.ResultPartial:
		return source.Confidence*PartialSignalWeight + bonus
	case domain.ResultFailed:
		return source.Confidence * FailureAmplification
	}
	return 0
}

// expand pushes the unvisited outgoing neighbors of conceptID onto the
// frontier with per-edge attenuated signals.
func (p *Propagator) expand(conceptID string, signal float64, depth int, visited map[string]bool) []frontierItem {
	var next []frontierItem
	for _, edge := range p.edgesFrom[conceptID] {
		if visited[edge.To] {
			continue
		}
		child := signal * edge.InferenceStrength
		if depth >= 1 {
			child *= HopAttenuation
		}
		if child < PropagationFloor {
			continue
		}
		visited[edge.To] = true
		next = append(next, frontierItem{conceptID: edge.To, signal: child, depth: depth + 1, parent: conceptID})
	}
	return next
}

// applySignal mutates target per the event result and reports whether the
// target actually changed. A success-class signal that lands also stamps
// the target's LastVerified from the triggering event, so inferred trust
// decays on the same schedule as direct trust.
func applySignal(target *domain.TrustState, event *domain.VerificationEvent, signal float64, parent string) bool {
	if event.Result == domain.ResultFailed {
		newConf := target.Confidence - signal
		if newConf < 0 {
			newConf = 0
		}
		if target.Confidence-newConf <= MinStateDelta {
			return false
		}
		target.Confidence = newConf
		switch {
		case target.Level == domain.TrustVerified:
			target.Level = domain.TrustContested
		case target.Level == domain.TrustInferred && newConf == 0:
			target.Level = domain.TrustUntested
			target.InferredFrom = nil
		}
		return true
	}

	// Success-class signal: verified and contested targets are left alone.
	if target.Level == domain.TrustVerified || target.Level == domain.TrustContested {
		return false
	}

	newConf := target.Confidence
	if signal > newConf {
		newConf = signal
	}
	levelChanged := target.Level == domain.TrustUntested
	if newConf-target.Confidence <= MinStateDelta && !levelChanged {
		return false
	}

	target.Confidence = clamp01(newConf)
	target.Level = domain.TrustInferred
	addInferredFrom(target, parent)
	if target.LastVerified == nil || target.LastVerified.Before(event.Timestamp) {
		ts := event.Timestamp
		target.LastVerified = &ts
	}
	return true
}

func parentOf(item frontierItem, event *domain.VerificationEvent) string {
	if item.parent != "" {
		return item.parent
	}
	return event.ConceptID
}

func addInferredFrom(target *domain.TrustState, parent string) {
	for _, id := range target.InferredFrom {
		if id == parent {
			return
		}
	}
	target.InferredFrom = append(target.InferredFrom, parent)
}

// ensureState returns the accumulator entry for conceptID, creating an
// untested zero state when the concept has not been touched yet.
func ensureState(states map[string]*domain.TrustState, personID, conceptID string) *domain.TrustState {
	if st, ok := states[conceptID]; ok {
		return st
	}
	st := &domain.TrustState{
		PersonID:  personID,
		ConceptID: conceptID,
		Level:     domain.TrustUntested,
	}
	states[conceptID] = st
	return st
}
