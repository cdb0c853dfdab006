package sqlite

// Schema DDL. Lists are documents: their cards are embedded as a JSON array
// so that a card drag rewrites exactly the lists it touches.
const (
	createUsers = `CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);`

	createBoards = `CREATE TABLE IF NOT EXISTS boards (
    board_id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    title TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createLists = `CREATE TABLE IF NOT EXISTS lists (
    list_id TEXT PRIMARY KEY,
    parent TEXT NOT NULL,
    title TEXT NOT NULL,
    ord INTEGER NOT NULL,
    cards TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
)

const (
	idxBoardsOwner = `CREATE INDEX IF NOT EXISTS idx_boards_owner ON boards(owner_id);`
	idxListsParent = `CREATE INDEX IF NOT EXISTS idx_lists_parent ON lists(parent, ord);`
)

// schemaDDL lists every statement run on Attach. All are idempotent so an
// existing database file is reused.
var schemaDDL = []string{
	createUsers,
	createBoards,
	createLists,
	idxBoardsOwner,
	idxListsParent,
}
