// Package notify sends account notification emails. Account events are
// turned into mail jobs on a background queue, so a slow or failing mail
// transport never delays or fails the request that caused the event.
package notify
