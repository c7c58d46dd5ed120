package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0004, Down0004)
}

func Up0004(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE submission (
    id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
    author_id UUID NOT NULL,
    problem_id UUID DEFAULT NULL,
    FOREIGN KEY (problem_id) REFERENCES problem(id) ON DELETE SET NULL,
    contest_id UUID DEFAULT NULL,
    FOREIGN KEY (contest_id) REFERENCES contest(id) ON DELETE SET NULL,
    source TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN (
        'PENDING', 'JUDGING', 'ACCEPTED', 'WRONG_ANSWER', 'RUNTIME_ERROR',
        'TIME_LIMIT_EXCEEDED', 'MEMORY_LIMIT_EXCEEDED', 'OUTPUT_LIMIT_EXCEEDED',
        'COMPILATION_ERROR', 'INTERNAL_ERROR'
    )),
    total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    submitted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
    log TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp
);`},
		statement{query: `
CREATE INDEX submission_contest_id_submitted_at_index ON submission (contest_id, submitted_at);`},
		statement{query: `
CREATE INDEX submission_author_id_index ON submission (author_id);`},
	)
}

func Down0004(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP INDEX submission_author_id_index;`},
		statement{query: `DROP INDEX submission_contest_id_submitted_at_index;`},
		statement{query: `DROP TABLE submission;`},
	)
}
