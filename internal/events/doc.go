// Package events carries account lifecycle notifications from the services
// that cause them to the components that react to them.
//
// Services emit an AccountEvent without knowing who listens; handlers such
// as the notification dispatcher register with an emitter. This keeps the
// user service free of any dependency on email delivery or background jobs.
package events
