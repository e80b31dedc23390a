/*
Package session implements the process-wide session registry.

A Registry owns the live sessions of a Haptix engine: it creates them from
validated graphs, hands out the authoritative session on lookup and stops them
on request. Sessions have no expiry; they live until deleted or until the
registry is closed.
*/
package session
