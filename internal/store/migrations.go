package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at startup and by the migrate command.
const schema = `
CREATE TABLE IF NOT EXISTS concepts (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS concept_edges (
	id                 UUID PRIMARY KEY,
	from_id            TEXT NOT NULL REFERENCES concepts(id),
	to_id              TEXT NOT NULL REFERENCES concepts(id),
	edge_type          TEXT NOT NULL,
	inference_strength DOUBLE PRECISION NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (from_id, to_id, edge_type)
);

CREATE INDEX IF NOT EXISTS idx_concept_edges_from ON concept_edges(from_id);
CREATE INDEX IF NOT EXISTS idx_concept_edges_to   ON concept_edges(to_id);

CREATE TABLE IF NOT EXISTS verification_events (
	id              UUID PRIMARY KEY,
	seq             BIGSERIAL UNIQUE,
	person_id       TEXT NOT NULL,
	concept_id      TEXT NOT NULL REFERENCES concepts(id),
	modality        TEXT NOT NULL,
	result          TEXT NOT NULL,
	context         TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL DEFAULT 'internal',
	ts              TIMESTAMPTZ NOT NULL,
	retracted       BOOLEAN NOT NULL DEFAULT FALSE,
	retracted_at    TIMESTAMPTZ,
	retracted_by    TEXT NOT NULL DEFAULT '',
	retraction_note TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_verification_events_person_concept
	ON verification_events(person_id, concept_id);

CREATE TABLE IF NOT EXISTS claim_events (
	id              UUID PRIMARY KEY,
	person_id       TEXT NOT NULL,
	concept_id      TEXT NOT NULL REFERENCES concepts(id),
	self_confidence DOUBLE PRECISION NOT NULL,
	context         TEXT NOT NULL DEFAULT '',
	ts              TIMESTAMPTZ NOT NULL,
	retracted       BOOLEAN NOT NULL DEFAULT FALSE,
	retracted_at    TIMESTAMPTZ,
	retracted_by    TEXT NOT NULL DEFAULT '',
	retraction_note TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_claim_events_person_concept
	ON claim_events(person_id, concept_id);

CREATE TABLE IF NOT EXISTS trust_states (
	person_id        TEXT NOT NULL,
	concept_id       TEXT NOT NULL,
	level            TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	last_verified    TIMESTAMPTZ,
	inferred_from    TEXT[] NOT NULL DEFAULT '{}',
	modalities       TEXT[] NOT NULL DEFAULT '{}',
	derived_from_seq BIGINT NOT NULL,
	graph_version    INT NOT NULL,
	model_version    INT NOT NULL,
	taxonomy_version INT NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (person_id, concept_id)
);

CREATE TABLE IF NOT EXISTS projection_checkpoints (
	person_id        TEXT NOT NULL,
	scope_key        TEXT NOT NULL,
	seq              BIGINT NOT NULL,
	graph_version    INT NOT NULL,
	model_version    INT NOT NULL,
	taxonomy_version INT NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (person_id, scope_key)
);

CREATE TABLE IF NOT EXISTS projection_jobs (
	id           BIGSERIAL PRIMARY KEY,
	person_id    TEXT NOT NULL,
	scope_key    TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_projection_jobs_pending
	ON projection_jobs(person_id, scope_key) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS meta_versions (
	id               INT PRIMARY KEY CHECK (id = 1),
	graph_version    INT NOT NULL DEFAULT 1,
	model_version    INT NOT NULL,
	taxonomy_version INT NOT NULL
);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
