package postgres

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS ventures (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL,
    kind        TEXT NOT NULL,
    active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS offices (
    id          BIGSERIAL PRIMARY KEY,
    venture_id  BIGINT NOT NULL REFERENCES ventures(id),
    name        TEXT NOT NULL,
    city        TEXT NOT NULL DEFAULT '',
    state       TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    full_name     TEXT NOT NULL,
    role          TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    active        BOOLEAN NOT NULL DEFAULT TRUE,
    venture_ids   BIGINT[] NOT NULL DEFAULT '{}',
    office_ids    BIGINT[] NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS carriers (
    id          BIGSERIAL PRIMARY KEY,
    venture_id  BIGINT NOT NULL REFERENCES ventures(id),
    name        TEXT NOT NULL,
    mc_number   TEXT NOT NULL DEFAULT '',
    phone       TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL DEFAULT '',
    active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS loads (
    id            BIGSERIAL PRIMARY KEY,
    venture_id    BIGINT NOT NULL REFERENCES ventures(id),
    office_id     BIGINT NOT NULL DEFAULT 0,
    carrier_id    BIGINT NOT NULL DEFAULT 0,
    shipper_id    BIGINT NOT NULL DEFAULT 0,
    reference     TEXT NOT NULL,
    status        TEXT NOT NULL,
    pickup_city   TEXT NOT NULL DEFAULT '',
    pickup_state  TEXT NOT NULL DEFAULT '',
    drop_city     TEXT NOT NULL DEFAULT '',
    drop_state    TEXT NOT NULL DEFAULT '',
    revenue_cents BIGINT NOT NULL DEFAULT 0,
    margin_cents  BIGINT NOT NULL DEFAULT 0,
    pickup_date   TIMESTAMPTZ,
    created_by_id BIGINT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_loads_venture ON loads(venture_id, created_at);
CREATE INDEX IF NOT EXISTS idx_loads_shipper ON loads(shipper_id, created_at);

CREATE TABLE IF NOT EXISTS incidents (
    id             BIGSERIAL PRIMARY KEY,
    venture_id     BIGINT NOT NULL REFERENCES ventures(id),
    office_id      BIGINT NOT NULL DEFAULT 0,
    title          TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'OPEN',
    severity       TEXT NOT NULL DEFAULT '',
    reporter_id    BIGINT NOT NULL,
    assigned_to_id BIGINT NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversations (
    id                BIGSERIAL PRIMARY KEY,
    venture_id        BIGINT NOT NULL REFERENCES ventures(id),
    channel           TEXT NOT NULL,
    external_address  TEXT NOT NULL,
    subject           TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'OPEN',
    assignment_status TEXT NOT NULL DEFAULT 'OPEN',
    assigned_user_id  BIGINT NOT NULL DEFAULT 0,
    unread_count      INT NOT NULL DEFAULT 0,
    last_message_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversations_address
    ON conversations(channel, external_address) WHERE status != 'ARCHIVED';

CREATE TABLE IF NOT EXISTS messages (
    id              BIGSERIAL PRIMARY KEY,
    conversation_id BIGINT NOT NULL REFERENCES conversations(id),
    direction       TEXT NOT NULL,
    channel         TEXT NOT NULL,
    from_address    TEXT NOT NULL DEFAULT '',
    to_address      TEXT NOT NULL DEFAULT '',
    body            TEXT NOT NULL,
    external_id     TEXT NOT NULL DEFAULT '',
    sent_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_external_id
    ON messages(external_id) WHERE external_id != '';

CREATE TABLE IF NOT EXISTS notifications (
    id         BIGSERIAL PRIMARY KEY,
    user_id    BIGINT NOT NULL,
    type       TEXT NOT NULL,
    title      TEXT NOT NULL,
    body       TEXT NOT NULL DEFAULT '',
    read       BOOLEAN NOT NULL DEFAULT FALSE,
    read_at    TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notifications_unread
    ON notifications(user_id) WHERE NOT read;

CREATE TABLE IF NOT EXISTS incentive_rules (
    id                   BIGSERIAL PRIMARY KEY,
    venture_id           BIGINT NOT NULL REFERENCES ventures(id),
    metric_key           TEXT NOT NULL,
    calc_type            TEXT NOT NULL,
    rate                 DOUBLE PRECISION NOT NULL DEFAULT 0,
    threshold_metric_key TEXT NOT NULL DEFAULT '',
    threshold_value      DOUBLE PRECISION NOT NULL DEFAULT 0,
    bonus_amount_cents   BIGINT NOT NULL DEFAULT 0,
    active               BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS incentive_awards (
    id           BIGSERIAL PRIMARY KEY,
    venture_id   BIGINT NOT NULL REFERENCES ventures(id),
    user_id      BIGINT NOT NULL,
    rule_id      BIGINT NOT NULL REFERENCES incentive_rules(id),
    day          TEXT NOT NULL,
    amount_cents BIGINT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_incentive_awards_day ON incentive_awards(venture_id, day);
CREATE INDEX IF NOT EXISTS idx_incentive_awards_user ON incentive_awards(user_id, day);

CREATE TABLE IF NOT EXISTS user_metrics_daily (
    venture_id BIGINT NOT NULL REFERENCES ventures(id),
    user_id    BIGINT NOT NULL,
    day        TEXT NOT NULL,
    metric_key TEXT NOT NULL,
    value      DOUBLE PRECISION NOT NULL DEFAULT 0,
    PRIMARY KEY (venture_id, user_id, day, metric_key)
);

CREATE TABLE IF NOT EXISTS audit_events (
    id         BIGSERIAL PRIMARY KEY,
    actor_id   BIGINT NOT NULL DEFAULT 0,
    action     TEXT NOT NULL,
    entity     TEXT NOT NULL,
    entity_id  BIGINT NOT NULL DEFAULT 0,
    venture_id BIGINT NOT NULL DEFAULT 0,
    detail     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_events_created ON audit_events(created_at);
`

// InitSchema applies the schema idempotently on startup.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
