// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package.
//
// Importing this package makes the following storage kinds available:
//
//   - "postgres" (dbstream/internal/storage/postgres)
//   - "mysql"    (dbstream/internal/storage/mysql)
//   - "mssql"    (dbstream/internal/storage/mssql)
//   - "sqlite"   (dbstream/internal/storage/sqlite)
//
// Typical usage (in cmd/dbstream or a similar wiring layer):
//
//	import _ "dbstream/internal/storage/all"
//
//	src, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: srcDSN})
//	dst, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dstDSN})
//
// A binary that supports only a subset of backends can define its own wiring
// package that imports only the required backends.
package all

import (
	_ "dbstream/internal/storage/mssql"
	_ "dbstream/internal/storage/mysql"
	_ "dbstream/internal/storage/postgres"
	_ "dbstream/internal/storage/sqlite"
)
