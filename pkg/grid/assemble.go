package grid

import (
	"fmt"

	"github.com/resflow/resflow/internal/model"
)

// Policy controls how a cell block whose value count does not match
// the inferred I-axis size is handled during assembly.
type Policy uint8

const (
	// PolicyWarn skips the block, records a warning and leaves its
	// array slice zero. This is the default.
	PolicyWarn Policy = iota

	// PolicyIgnore skips the block silently.
	PolicyIgnore

	// PolicyStrict aborts assembly with an error.
	PolicyStrict
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyWarn:
		return "warn"
	case PolicyIgnore:
		return "ignore"
	case PolicyStrict:
		return "strict"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "warn":
		return PolicyWarn, nil
	case "ignore":
		return PolicyIgnore, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return PolicyWarn, fmt.Errorf("grid: unknown mismatch policy %q", s)
	}
}

// Options configures assembly.
type Options struct {
	// Policy selects the mismatch handling. Zero value is PolicyWarn.
	Policy Policy

	// NTime overrides the time-axis length. Zero means the committed
	// step count. The report may contain blockless markers; passing
	// the marker count here keeps the time axis aligned with the
	// report even though those steps carry no data.
	NTime int
}

// Assemble infers the grid shape from the committed time steps and
// scatters each cell block into a zero-initialized dense array.
//
// n_i is the value count of the first non-empty block, n_j and n_k
// are the maximum 1-based indices observed, n_time the committed step
// count (or Options.NTime). A block whose value count differs from
// n_i is handled per the configured policy; under the default its
// slice stays zero and a structured warning is recorded.
func Assemble(steps []model.TimeStep, opts Options) (*Array, []model.Warning, error) {
	var ni, nj, nk int
	for _, step := range steps {
		for _, b := range step.Blocks {
			if ni == 0 {
				ni = len(b.Values)
			}
			if b.J > nj {
				nj = b.J
			}
			if b.K > nk {
				nk = b.K
			}
		}
	}

	nt := len(steps)
	if opts.NTime > nt {
		nt = opts.NTime
	}
	if ni == 0 || nj == 0 || nk == 0 || nt == 0 {
		return nil, nil, ErrNoData
	}

	a, err := NewArray(ni, nj, nk, nt)
	if err != nil {
		return nil, nil, err
	}

	var warnings []model.Warning
	for t, step := range steps {
		for _, b := range step.Blocks {
			if len(b.Values) != ni {
				switch opts.Policy {
				case PolicyStrict:
					return nil, warnings, fmt.Errorf(
						"grid: block K=%d J=%d at time %v has %d values, expected %d",
						b.K, b.J, step.Time, len(b.Values), ni)
				case PolicyWarn:
					warnings = append(warnings, model.Warning{
						Kind: model.WarnBlockSizeMismatch,
						K:    b.K,
						J:    b.J,
						Time: step.Time,
						Message: fmt.Sprintf("expected %d values, got %d; slice left zero",
							ni, len(b.Values)),
					})
				}
				continue
			}
			for i, v := range b.Values {
				a.Set(i, b.J-1, b.K-1, t, v)
			}
		}
	}

	return a, warnings, nil
}
