// Package store persists per-person, per-date collector snapshots. The file
// backend keeps the on-disk layout
//
//	{dir}/{personID}/{YYYY_MM_DD}/{site}_extracted_data.json
//
// with rejected objects written beside it as
// {site}_extracted_data_unvalidated.json. SQLite, Postgres, MinIO and Redis
// backends store the same documents under the same key.
package store
