// Package repositories implements SQLite persistence for student records and bulk job history.
//
// Every method issues a single parameterized statement against the shared [database/sql.DB];
// no transaction spans calls and nothing is retried. Failures are logged at this boundary
// and returned wrapped so the service layer can translate them.
//
// Key Implementations:
//   - [StudentRepository] : CRUD over the students table, keyed by the caller-supplied ID
//   - [JobRepository] : import/export run history with sequence-ordered listing
//
// Missing rows surface as [ErrNoRows]; primary key collisions as [ErrConflict].
package repositories
