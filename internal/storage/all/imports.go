// Package all enables every built-in storage backend. Import it for side
// effects only:
//
//	import _ "insights/internal/storage/all"
//
// after which storage.New accepts the kinds "postgres", "mssql", "mysql" and
// "sqlite". A binary that needs fewer backends imports them individually.
package all

import (
	_ "insights/internal/storage/mssql"
	_ "insights/internal/storage/mysql"
	_ "insights/internal/storage/postgres"
	_ "insights/internal/storage/sqlite"
)
