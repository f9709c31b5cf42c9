package database

// Store bundles the repositories sharing one connection.
type Store struct {
	*ContentStore
	*ConfigStore
	*RunStore
}

func NewStore(db *DB) *Store {
	return &Store{
		ContentStore: NewContentStore(db),
		ConfigStore:  NewConfigStore(db),
		RunStore:     NewRunStore(db),
	}
}
