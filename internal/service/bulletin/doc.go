// Package bulletin implements the bulletin dispatch path: the opted-in
// audience receives the bulletin on every requested channel, the recurring
// campaign is cloned from its source, and the platform's maintenance steps
// are run in order so the new campaign fires.
//
// The service depends only on the Platform interface defined here; the
// Mautic implementation lives in internal/mautic.
package bulletin
