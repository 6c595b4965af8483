package domain

// Application is the owning tenant of records. Its numeric ID is
// storage-assigned; the UUID is the externally visible identifier.
// An Application doubles as the viewing context for cross-tenant
// record resolution.
type Application struct {
	id   int64
	uuid string
	name string
}

// NewApplication creates an application reference.
func NewApplication(id int64, uuid, name string) Application {
	return Application{id: id, uuid: uuid, name: name}
}

// ID returns the storage-assigned identity.
func (a Application) ID() int64 { return a.id }

// UUID returns the public identifier.
func (a Application) UUID() string { return a.uuid }

// Name returns the display name.
func (a Application) Name() string { return a.name }

// IsZero reports whether the application is unset (no viewing context).
func (a Application) IsZero() bool { return a.id == 0 && a.uuid == "" }
