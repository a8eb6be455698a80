// package queue runs background jobs one at a time in submission order and
// broadcasts their lifecycle to subscribers.
package queue
