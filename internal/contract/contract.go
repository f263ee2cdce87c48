package contract

import (
	"fmt"

	"github.com/pkg/errors"
)

// Violation reports caller misuse of the scoring core: negative weights,
// mismatched shapes, division by a quantity the caller should have ruled
// out, an incomplete tie-breaking permutation and the like. It is raised
// with panic and is never a data condition; empty or degenerate data yields
// an undefined score instead.
type Violation struct {
	Op  string
	Msg string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("contract violation in %s: %s", v.Op, v.Msg)
}

// Fail panics with a *Violation.
func Fail(op, format string, args ...interface{}) {
	panic(&Violation{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// Require calls Fail when cond is false.
func Require(cond bool, op, format string, args ...interface{}) {
	if !cond {
		Fail(op, format, args...)
	}
}

// Catch runs fn and converts a *Violation panic into a returned error.
// Any other panic is re-raised untouched.
func Catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			v, ok := r.(*Violation)
			if !ok {
				panic(r)
			}
			err = v
		}
	}()
	fn()
	return nil
}

// IsViolation reports whether err, or anything it wraps, is a *Violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}
