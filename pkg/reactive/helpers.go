package reactive

import (
	"maps"
	"slices"
)

// Number is the constraint of the arithmetic helpers.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Add adds n to the signal's value.
func Add[T Number](s *Signal[T], n T) error {
	return s.Update(func(v T) T { return v + n })
}

// Inc increments the signal's value by 1.
func Inc[T Number](s *Signal[T]) error {
	return Add(s, 1)
}

// Dec decrements the signal's value by 1.
func Dec[T Number](s *Signal[T]) error {
	return s.Update(func(v T) T { return v - 1 })
}

// Toggle flips a boolean signal.
func Toggle(s *Signal[bool]) error {
	return s.Update(func(v bool) bool { return !v })
}

// The collection helpers below never modify the current value in place:
// they write a fresh copy, so readers holding the old slice or map keep a
// consistent view and equality sees the change.

// Append adds items to the end of a slice signal.
func Append[T any](s *Signal[[]T], items ...T) error {
	if len(items) == 0 {
		return nil
	}
	return s.Update(func(cur []T) []T {
		next := make([]T, 0, len(cur)+len(items))
		next = append(next, cur...)
		return append(next, items...)
	})
}

// RemoveAt removes the element at index. Out-of-range indexes are a no-op.
func RemoveAt[T any](s *Signal[[]T], index int) error {
	cur := s.Peek()
	if index < 0 || index >= len(cur) {
		return nil
	}
	return s.Set(slices.Delete(slices.Clone(cur), index, index+1))
}

// RemoveWhere removes every element matching pred.
func RemoveWhere[T any](s *Signal[[]T], pred func(T) bool) error {
	cur := s.Peek()
	if !slices.ContainsFunc(cur, pred) {
		return nil
	}
	return s.Set(slices.DeleteFunc(slices.Clone(cur), pred))
}

// SetKey stores value under key in a map signal.
func SetKey[K comparable, V any](s *Signal[map[K]V], key K, value V) error {
	return s.Update(func(cur map[K]V) map[K]V {
		next := make(map[K]V, len(cur)+1)
		maps.Copy(next, cur)
		next[key] = value
		return next
	})
}

// DeleteKey removes key from a map signal. A missing key is a no-op.
func DeleteKey[K comparable, V any](s *Signal[map[K]V], key K) error {
	cur := s.Peek()
	if _, ok := cur[key]; !ok {
		return nil
	}
	next := maps.Clone(cur)
	delete(next, key)
	return s.Set(next)
}
