package core

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tagHello Tag = iota
	tagReserved
	tagCount
	tagLast = tagCount
)

type hello struct {
	Name string `json:"name"`
}

type count struct {
	N int `json:"n"`
}

func TestDispatcher_RoutesToTypedHandler(t *testing.T) {
	var gotHello hello
	var gotCount count

	d, err := NewDispatcher(tagLast,
		OnJSON(tagHello, func(_ context.Context, msg hello) error {
			gotHello = msg
			return nil
		}),
		OnJSON(tagCount, func(_ context.Context, msg count) error {
			gotCount = msg
			return nil
		}),
	)
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(context.Background(), tagHello, []byte(`{"name":"world"}`)))
	require.NoError(t, d.Dispatch(context.Background(), tagCount, []byte(`{"n":42}`)))

	assert.Equal(t, hello{Name: "world"}, gotHello)
	assert.Equal(t, count{N: 42}, gotCount)
}

func TestDispatcher_UnknownTag(t *testing.T) {
	called := false
	d, err := NewDispatcher(tagLast,
		OnJSON(tagHello, func(context.Context, hello) error {
			called = true
			return nil
		}),
	)
	require.NoError(t, err)

	for _, tag := range []Tag{tagReserved, tagCount, 99} {
		err := d.Dispatch(context.Background(), tag, []byte(`{}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownTag)

		var unknown *UnknownTagError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, tag, unknown.Tag)
		assert.Equal(t, tagLast, unknown.Last)
	}
	assert.False(t, called)
}

func TestDispatcher_Validation(t *testing.T) {
	noop := func(context.Context, hello) error { return nil }

	_, err := NewDispatcher(tagLast, OnJSON(tagLast+1, noop))
	assert.ErrorIs(t, err, ErrTagOutOfRange)

	_, err = NewDispatcher(tagLast, OnJSON(tagHello, noop), OnJSON(tagHello, noop))
	assert.ErrorIs(t, err, ErrDuplicateTag)

	d, err := NewDispatcher[[]byte](tagLast)
	require.NoError(t, err)
	assert.Empty(t, d.Tags())
}

func TestDispatcher_Introspection(t *testing.T) {
	d, err := NewDispatcher(tagLast,
		OnJSON(tagCount, func(context.Context, count) error { return nil }),
		OnJSON(tagHello, func(context.Context, hello) error { return nil }),
	)
	require.NoError(t, err)

	assert.Equal(t, tagLast, d.Last())
	assert.True(t, d.Defined(tagHello))
	assert.False(t, d.Defined(tagReserved))
	assert.Equal(t, "core.hello", d.TypeName(tagHello))
	assert.Equal(t, "core.count", d.TypeName(tagCount))
	assert.Empty(t, d.TypeName(tagReserved))
	assert.Equal(t, []Tag{tagHello, tagCount}, d.Tags())
}

func TestDispatcher_DecodeAndHandlerErrors(t *testing.T) {
	errHandler := errors.New("handler failed")
	d, err := NewDispatcher(tagLast,
		OnJSON(tagHello, func(context.Context, hello) error { return errHandler }),
	)
	require.NoError(t, err)

	err = d.Dispatch(context.Background(), tagHello, []byte(`not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "core.hello")
	assert.NotErrorIs(t, err, ErrUnknownTag)

	err = d.Dispatch(context.Background(), tagHello, nil)
	assert.Error(t, err)

	err = d.Dispatch(context.Background(), tagHello, []byte(`{}`))
	assert.ErrorIs(t, err, errHandler)
}

func TestDispatcher_CustomSource(t *testing.T) {
	// String-encoded integers, decoded with strconv.
	var got []int
	d, err := NewDispatcher(Tag(3),
		On(Tag(3), strconv.Atoi, func(_ context.Context, n int) error {
			got = append(got, n)
			return nil
		}),
	)
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(context.Background(), 3, "17"))
	assert.Error(t, d.Dispatch(context.Background(), 3, "x"))
	assert.Equal(t, []int{17}, got)
}

func TestDispatcher_OnEventQueuesToProcessor(t *testing.T) {
	p := startedProcessor(t, nil)
	got := make(chan hello, 1)
	r := ReceiverFunc[hello](func(ctx context.Context, msg hello) {
		if GetCurrentProcessor(ctx) != p {
			t.Error("handler did not run on the target processor")
		}
		got <- msg
	})

	d, err := NewDispatcher(tagLast, OnEvent(tagHello, decodeJSON[hello], p, r))
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(context.Background(), tagHello, []byte(`{"name":"queued"}`)))

	select {
	case msg := <-got:
		assert.Equal(t, "queued", msg.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("queued event was not processed")
	}
}
