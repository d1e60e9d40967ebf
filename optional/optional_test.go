package optional

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/logsys/xerrors"
)

func TestValue(t *testing.T) {
	t.Run("Some", func(t *testing.T) {
		v := Some(10)
		assert.True(t, v.HasValue())
		n, ok := v.Get()
		assert.True(t, ok)
		assert.Equal(t, 10, n)
		assert.Equal(t, 10, v.MustGet())
		assert.Equal(t, 10, v.OrElse(5))
	})

	t.Run("None", func(t *testing.T) {
		v := None[int]()
		assert.False(t, v.HasValue())
		_, ok := v.Get()
		assert.False(t, ok)
		assert.Equal(t, 5, v.OrElse(5))
		assert.PanicsWithValue(t, xerrors.ErrEmptyOptional, func() { v.MustGet() })
	})

	t.Run("zero value is empty", func(t *testing.T) {
		var v Value[string]
		assert.False(t, v.HasValue())
	})

	t.Run("copies the value", func(t *testing.T) {
		src := []int{1, 2}
		v := Some(len(src))
		src = append(src, 3)
		assert.Equal(t, 2, v.MustGet())
		assert.Len(t, src, 3)
	})
}

func TestRef(t *testing.T) {
	t.Run("refers to the same object", func(t *testing.T) {
		obj := struct{ N int }{N: 1}
		r := RefOf(&obj)
		require.True(t, r.HasValue())
		assert.Same(t, &obj, r.Get())

		r.Get().N = 2
		assert.Equal(t, 2, obj.N)

		copied := r
		assert.Same(t, &obj, copied.MustGet())
	})

	t.Run("empty", func(t *testing.T) {
		r := NoRef[int]()
		assert.False(t, r.HasValue())
		assert.Nil(t, r.Get())
		assert.PanicsWithValue(t, xerrors.ErrEmptyOptional, func() { r.MustGet() })

		assert.False(t, RefOf[int](nil).HasValue())
	})
}

func TestMove(t *testing.T) {
	t.Run("take moves out", func(t *testing.T) {
		s := "payload"
		m := MoveOf(&s)
		require.True(t, m.HasValue())
		assert.Equal(t, "payload", *m.Peek())

		v, ok := m.Take()
		assert.True(t, ok)
		assert.Equal(t, "payload", v)
		assert.Equal(t, "", s, "source must be left moved-from")

		v, ok = m.Take()
		assert.True(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("peek does not move", func(t *testing.T) {
		buf := []byte("abc")
		m := MoveOf(&buf)
		assert.Equal(t, []byte("abc"), *m.Peek())
		assert.Equal(t, []byte("abc"), buf)
	})

	t.Run("empty", func(t *testing.T) {
		m := NoMove[int]()
		assert.False(t, m.HasValue())
		assert.Nil(t, m.Peek())
		_, ok := m.Take()
		assert.False(t, ok)
	})
}
