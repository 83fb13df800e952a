// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"fmt"
	"os"

	"code.hybscloud.com/atomix"
)

// scope asserts that driver state handed to host notifiers is fully
// released before the enclosing Run returns. Every registered notifier
// retains the scope and releases it when it fires; once the run's
// result is ready, an outstanding retain means a host callback could
// still fire against state the caller believes dead.
//
// This is a best-effort safety net, not a guarantee against host
// misbehavior: a breach crashes the process rather than trusting the
// violated invariant further.
type scope struct {
	refs atomix.Uint32
}

func (s *scope) retain() {
	s.refs.Add(1)
}

func (s *scope) release() {
	s.refs.Add(^uint32(0))
}

// close runs the liveness check. It only asserts when the driver
// completed cleanly: on the violation paths the driver has already
// aborted and panicked, and late notifiers are diverted to an abort by
// the driver's finished flag.
func (s *scope) close(clean bool) {
	if clean && s.refs.Load() != 0 {
		abortProcess("idb: transaction driver outlived its scope")
	}
}

// abortProcess is the unconditional escape hatch for a scope liveness
// breach. Swapped out in tests.
var abortProcess = func(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
