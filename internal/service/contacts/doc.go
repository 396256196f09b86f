// Package contacts implements the contact import path: incoming records are
// normalized, reconciled one by one against the directory, and the contacts
// that opted in to the bulletin are tagged once the batch is done.
//
// The service depends only on the Directory interface defined here; the
// Odoo implementation lives in internal/odoo.
package contacts
