// Package sheetsync holds the spreadsheet-side collaborator contract the
// record engine consumes. The import job that writes records lives outside
// this service; the core only calls back for delete compensation and offers
// a workbook export of filtered listings.
package sheetsync

import "context"

// RowRemover removes the spreadsheet row backing a record. Record deletion
// calls it before touching the local store; a failure here aborts the whole
// delete.
type RowRemover interface {
	RemoveRow(ctx context.Context, recordID string) error
}

// NoOpRemover is used when no sheet webhook is configured, for local and
// test environments.
type NoOpRemover struct{}

func (NoOpRemover) RemoveRow(ctx context.Context, recordID string) error {
	return nil
}
