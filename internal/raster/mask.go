package raster

import "fmt"

// Scene classification (SCL) codes as produced by Sentinel-2 L2A processing.
const (
	SCLNoData             = 0
	SCLSaturatedDefective = 1
	SCLDarkArea           = 2
	SCLCloudShadow        = 3
	SCLVegetation         = 4
	SCLNotVegetated       = 5
	SCLWater              = 6
	SCLCloudLowProb       = 7
	SCLCloudMediumProb    = 8
	SCLCloudHighProb      = 9
	SCLThinCirrus         = 10
	SCLSnowIce            = 11
)

// DefaultInvalidClasses are the codes screened out before index computation.
var DefaultInvalidClasses = []uint8{
	SCLNoData,
	SCLSaturatedDefective,
	SCLDarkArea,
	SCLCloudShadow,
	SCLCloudLowProb,
	SCLCloudMediumProb,
	SCLCloudHighProb,
	SCLThinCirrus,
	SCLSnowIce,
}

// MaskPolicy maps every known classification code to valid or invalid. The
// table is injected, never inferred from data.
type MaskPolicy struct {
	valid map[uint8]bool
}

// NewMaskPolicy builds a policy over the full SCL code range with the given
// codes marked invalid.
func NewMaskPolicy(invalid []uint8) MaskPolicy {
	p := MaskPolicy{valid: make(map[uint8]bool, SCLSnowIce+1)}
	for code := uint8(SCLNoData); code <= SCLSnowIce; code++ {
		p.valid[code] = true
	}
	for _, code := range invalid {
		p.valid[code] = false
	}
	return p
}

func DefaultMaskPolicy() MaskPolicy {
	return NewMaskPolicy(DefaultInvalidClasses)
}

// Valid reports whether a classification code marks a usable pixel. Codes
// outside the known table are invalid: treating an unrecognized code as
// usable would let unscreened cloud or shadow pixels into the indices.
func (p MaskPolicy) Valid(code uint8) bool {
	return p.valid[code]
}

// BuildValidityMask converts the resampled classification band into a
// per-pixel usability mask on the reference grid.
func BuildValidityMask(scl Band, policy MaskPolicy) ([]bool, error) {
	if scl.ID != SCL {
		return nil, fmt.Errorf("validity mask requires the %s band, got %s", SCL, scl.ID)
	}
	if len(scl.Data) != scl.Grid.Pixels() {
		return nil, fmt.Errorf("classification band has %d samples, grid expects %d", len(scl.Data), scl.Grid.Pixels())
	}

	mask := make([]bool, len(scl.Data))
	for i, v := range scl.Data {
		code := uint8(v)
		if float32(code) != v {
			// fractional or out-of-range sample, cannot be a real class
			continue
		}
		mask[i] = policy.Valid(code)
	}
	return mask, nil
}
