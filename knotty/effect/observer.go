package effect

// Funcs adapts plain functions to Observer. Nil fields are skipped.
type Funcs[E any] struct {
	Next      func(E)
	Completed func()
}

func (f Funcs[E]) OnNext(value E) {
	if f.Next != nil {
		f.Next(value)
	}
}

func (f Funcs[E]) OnCompleted() {
	if f.Completed != nil {
		f.Completed()
	}
}

// SubscribeTo registers fn for values of variant T only. Filtering happens on
// the observer side; the stream still delivers every value to every observer.
func SubscribeTo[T any, E any](s *Stream[E], fn func(T)) Disposable {
	return s.Subscribe(Funcs[E]{
		Next: func(value E) {
			if v, ok := any(value).(T); ok {
				fn(v)
			}
		},
	})
}
