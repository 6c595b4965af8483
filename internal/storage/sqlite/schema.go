package sqlite

import "fmt"

// attachmentTableDDL is shared by metadata and stats, which differ only
// in ranking semantics, not shape.
const attachmentTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid                TEXT    NOT NULL,
	application_id      INTEGER NOT NULL REFERENCES applications(id),
	application_user_id INTEGER REFERENCES application_users(id),
	resource_id         INTEGER NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
	format_id           INTEGER REFERENCES formats(id),
	language_id         INTEGER REFERENCES languages(id),
	value               TEXT    NOT NULL,
	created_at          TEXT    NOT NULL,
	updated_at          TEXT    NOT NULL,
	UNIQUE (application_id, uuid)
)`

const attachmentIndexDDL = `CREATE INDEX IF NOT EXISTS idx_%s_resource ON %s (resource_id)`

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS applications (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid       TEXT    NOT NULL UNIQUE,
		name       TEXT    NOT NULL,
		token      TEXT    NOT NULL UNIQUE,
		created_at TEXT    NOT NULL,
		updated_at TEXT    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS application_users (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid           TEXT    NOT NULL,
		application_id INTEGER NOT NULL REFERENCES applications(id),
		created_at     TEXT    NOT NULL,
		updated_at     TEXT    NOT NULL,
		UNIQUE (application_id, uuid)
	)`,
	`CREATE TABLE IF NOT EXISTS formats (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS languages (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid                TEXT    NOT NULL,
		application_id      INTEGER NOT NULL REFERENCES applications(id),
		application_user_id INTEGER REFERENCES application_users(id),
		format_id           INTEGER REFERENCES formats(id),
		language_id         INTEGER REFERENCES languages(id),
		uri                 TEXT    NOT NULL,
		resource_type       TEXT    NOT NULL,
		title               TEXT    NOT NULL DEFAULT '',
		content             TEXT    NOT NULL DEFAULT '',
		created_at          TEXT    NOT NULL,
		updated_at          TEXT    NOT NULL,
		UNIQUE (application_id, uuid),
		UNIQUE (application_id, uri)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resources_app ON resources (application_id)`,
}

// seedLanguages are the languages with first-class dictionary support.
var seedLanguages = []string{
	"simple", "danish", "dutch", "english", "finnish", "french",
	"german", "hungarian", "italian", "norwegian", "portuguese",
	"romanian", "russian", "spanish", "swedish", "turkish",
}

var seedFormats = []string{"json"}

func (s *Store) migrate() error {
	ddl := make([]string, 0, len(schemaDDL)+2)
	ddl = append(ddl, schemaDDL...)
	for _, table := range []string{"metadata", "stats"} {
		ddl = append(ddl,
			fmt.Sprintf(attachmentTableDDL, table),
			fmt.Sprintf(attachmentIndexDDL, table, table),
		)
	}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	for _, name := range seedLanguages {
		if _, err := s.db.Exec(
			`INSERT INTO languages (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name,
		); err != nil {
			return fmt.Errorf("failed to seed language %q: %w", name, err)
		}
	}
	for _, name := range seedFormats {
		if _, err := s.db.Exec(
			`INSERT INTO formats (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name,
		); err != nil {
			return fmt.Errorf("failed to seed format %q: %w", name, err)
		}
	}
	return nil
}
