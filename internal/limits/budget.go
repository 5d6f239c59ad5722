// Package limits bounds how much work a program may do. Both engines charge
// the same Budget type: the VM once per instruction, the evaluator once per
// statement, so the counts differ between engines but the failure does not.
package limits

import (
	"errors"
	"fmt"
)

var ErrStepLimit = errors.New("max instruction count exceeded")

// Budget counts steps against a limit. A nil Budget or a zero limit never
// runs out.
type Budget struct {
	limit int64
	used  int64
}

func NewBudget(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.limit
}

func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used
}

func (b *Budget) Reset() {
	if b != nil {
		b.used = 0
	}
}

// Charge records n more steps. It fails, without recording them, when they
// would exceed the limit.
func (b *Budget) Charge(n int64) error {
	if b == nil || n <= 0 {
		return nil
	}
	if b.limit > 0 && b.used+n > b.limit {
		return fmt.Errorf("%w (%d)", ErrStepLimit, b.limit)
	}
	b.used += n
	return nil
}
