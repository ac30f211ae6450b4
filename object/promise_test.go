package object

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func recorder(out *[]string, tag string) *Builtin {
	return NewBuiltin(tag, func(_ context.Context, args ...Object) (Object, error) {
		if len(args) == 0 {
			*out = append(*out, tag)
		} else {
			*out = append(*out, tag+":"+ToString(args[0]))
		}
		return Undefined, nil
	})
}

func TestPromiseReactionsRunOnSettle(t *testing.T) {
	ctx := context.Background()
	var got []string
	p := NewPromise()
	require.Equal(t, Pending, p.State())
	require.Nil(t, p.Then(ctx, recorder(&got, "ok"), recorder(&got, "err")))
	require.Nil(t, p.Finally(ctx, recorder(&got, "done")))
	require.Empty(t, got)

	require.Nil(t, p.Resolve(ctx, NewNumber(2)))
	require.Equal(t, []string{"ok:2", "done"}, got)
	require.Equal(t, Fulfilled, p.State())

	// Settled promises ignore later settlement.
	require.Nil(t, p.Reject(ctx, NewString("late")))
	require.Equal(t, NewNumber(2), p.Value())
}

func TestPromiseSettledDispatchesImmediately(t *testing.T) {
	ctx := context.Background()
	var got []string
	p := NewPromise()
	require.Nil(t, p.Reject(ctx, NewString("bad")))

	then := mustGet(t, p, "then")
	result, err := Call(ctx, then, recorder(&got, "ok"))
	require.Nil(t, err)
	require.Same(t, p, result)
	require.Empty(t, got)

	callMember(t, p, "catch", recorder(&got, "err"))
	callMember(t, p, "finally", recorder(&got, "done"))
	require.Equal(t, []string{"err:bad", "done"}, got)
	require.Equal(t, "Promise { <rejected> \"bad\" }", p.Inspect())
}

func TestPromiseResolvingFunctions(t *testing.T) {
	ctx := context.Background()
	p := NewPromise()
	resolve, reject := p.ResolvingFunctions()
	_, err := resolve.Call(ctx, NewString("v"))
	require.Nil(t, err)
	_, err = reject.Call(ctx, NewString("ignored"))
	require.Nil(t, err)
	require.Equal(t, Fulfilled, p.State())
	require.Equal(t, NewString("v"), p.Value())
}
