// Package domain holds the value types shared by the contact import and
// bulletin dispatch paths: contact records and write payloads on one side,
// channels, campaign templates and maintenance steps on the other.
//
// The package imports nothing from internal/ and carries no clients or
// contexts, so the directory and platform clients, the services and the
// report layer can all depend on it.
package domain
