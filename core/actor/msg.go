package actor

import "github.com/turingvideo/couchbase-lite-core/core/reflector"

type msgTyper interface{ MsgType() string }

// msgTypeFor returns the dispatch key and the diagnostic name of messages
// of type T.
func msgTypeFor[T any]() (key, short string) {
	var z T
	if mt, ok := any(z).(msgTyper); ok {
		return mt.MsgType(), mt.MsgType()
	}
	ti := reflector.TypeInfoFor[T]()
	return ti.Name, ti.Short
}
