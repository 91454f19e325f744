package database

// Store bundles the repositories the identity service needs. Postgres and the
// mock package both provide one.
type Store struct {
	Identities IdentityWriter
	Attendance AttendanceWriter
	Sightings  SightingWriter
}
