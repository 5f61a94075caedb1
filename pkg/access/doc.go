// Package access maps the portal's roles to what they may do and see.
//
// Every role is a row in a table: its permissions, its sidebar menu, its
// quick actions and the company stages it can browse. Capabilities is built
// per request from a Profile and passed explicitly to whoever needs it.
package access
