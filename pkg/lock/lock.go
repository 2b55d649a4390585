// Package lock serializes work on a shared key, such as the turns of one
// conversation.
package lock

import "context"

// Locker grants exclusive ownership of a key until release is called.
// Acquire blocks until the key is free or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
