// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"code.hybscloud.com/kont"
)

// Pair carries the two results of a Join.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple carries the three results of a Join3.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Join runs two operation chains concurrently against the same
// transaction: their host calls are all issued before either result is
// awaited, and the joined effect resolves once both have. A Left from
// either side short-circuits the pair.
func Join[A, B any](ma kont.Eff[Result[A]], mb kont.Eff[Result[B]]) kont.Eff[Result[Pair[A, B]]] {
	return kont.Perform(joinOp[Result[Pair[A, B]]]{
		parts: []kont.Expr[kont.Resumed]{eraseEff(ma), eraseEff(mb)},
		combine: func(rs []kont.Resumed) kont.Resumed {
			ea := rs[0].(Result[A])
			eb := rs[1].(Result[B])
			if err, ok := ea.GetLeft(); ok {
				return leftOf[Pair[A, B]](err)
			}
			if err, ok := eb.GetLeft(); ok {
				return leftOf[Pair[A, B]](err)
			}
			a, _ := ea.GetRight()
			b, _ := eb.GetRight()
			return kont.Right[error](Pair[A, B]{First: a, Second: b})
		},
	})
}

// Join3 is Join over three operation chains.
func Join3[A, B, C any](ma kont.Eff[Result[A]], mb kont.Eff[Result[B]], mc kont.Eff[Result[C]]) kont.Eff[Result[Triple[A, B, C]]] {
	return kont.Perform(joinOp[Result[Triple[A, B, C]]]{
		parts: []kont.Expr[kont.Resumed]{eraseEff(ma), eraseEff(mb), eraseEff(mc)},
		combine: func(rs []kont.Resumed) kont.Resumed {
			ea := rs[0].(Result[A])
			eb := rs[1].(Result[B])
			ec := rs[2].(Result[C])
			if err, ok := ea.GetLeft(); ok {
				return leftOf[Triple[A, B, C]](err)
			}
			if err, ok := eb.GetLeft(); ok {
				return leftOf[Triple[A, B, C]](err)
			}
			if err, ok := ec.GetLeft(); ok {
				return leftOf[Triple[A, B, C]](err)
			}
			a, _ := ea.GetRight()
			b, _ := eb.GetRight()
			c, _ := ec.GetRight()
			return kont.Right[error](Triple[A, B, C]{First: a, Second: b, Third: c})
		},
	})
}

// joinOp forks the current task into one child per part. Children run
// on the same driver, in the same poll cycles; there is no parallelism,
// only overlapped host calls.
type joinOp[P any] struct {
	kont.Phantom[P]
	parts   []kont.Expr[kont.Resumed]
	combine func([]kont.Resumed) kont.Resumed
}

func (op joinOp[P]) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	g := &joinGroup{
		pending: len(op.parts),
		results: make([]kont.Resumed, len(op.parts)),
		combine: op.combine,
	}
	// owner stays nil during spawning so a part that completes
	// synchronously cannot resume t while it is still being dispatched.
	for i, p := range op.parts {
		r.spawn(p, g, i)
	}
	if g.pending == 0 {
		return g.combine(g.results), true
	}
	g.owner = t
	return nil, false
}

// eraseEff reifies an operation chain into a driveable expression with
// its typed result erased to the resumption domain.
func eraseEff[T any](m kont.Eff[T]) kont.Expr[kont.Resumed] {
	return kont.ExprMap(kont.Reify(m), func(v T) kont.Resumed { return v })
}

// Loop iterates step from an initial state until it yields Right.
// Left carries the next state, Right the loop's result.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if s, ok := e.GetLeft(); ok {
			return Loop(s, step)
		}
		v, _ := e.GetRight()
		return kont.Pure(v)
	})
}
