// Package records persists photo records in the local SQLite library.
//
// SQLiteRepository works over a dbx.DBTX, so the same code runs against
// *sql.DB or inside a transaction opened by the store facade. Lookups that
// find nothing return common.ErrorNotFound.
package records
