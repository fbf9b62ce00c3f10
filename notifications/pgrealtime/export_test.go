package pgrealtime

import "context"

type ListenConn = listenConn

// SetDial replaces how s opens its connection.
func SetDial(s *Subscriber, dial func(ctx context.Context, url string) (ListenConn, error)) {
	s.dial = dial
}
