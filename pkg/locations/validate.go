package locations

import (
	"errors"
	"fmt"
	"strings"
)

// Validate walks a location tree and returns every definition problem that
// Check would otherwise only report once that location is evaluated.
func Validate(c Checker) error {
	var errs []error
	validate(c, &errs)
	return errors.Join(errs...)
}

func validate(c Checker, errs *[]error) {
	switch l := c.(type) {
	case *Location:
		if l.CheckType.IsComposite() {
			*errs = append(*errs, l.configError(fmt.Errorf("check type %s is not valid for a leaf location", l.CheckType)))
			return
		}
		if l.AddressBit < 0 || l.AddressBit > 7 {
			*errs = append(*errs, l.configError(fmt.Errorf("%w: got %d", ErrAddressBitOutOfRange, l.AddressBit)))
		}
		isBit := l.CheckType == CheckTypeBit || l.CheckType == CheckTypeFalseBit
		blank := func(s string) bool { return strings.TrimSpace(s) == "" }
		switch {
		case l.CompareType == CompareTypeRange:
			if blank(l.RangeStartValue) || blank(l.RangeEndValue) {
				*errs = append(*errs, l.configError(ErrRangeBoundsMissing))
			}
		case blank(l.CheckValue) && !isBit:
			*errs = append(*errs, l.configError(ErrCheckValueMissing))
		}
	case *CompositeLocation:
		if !l.CheckType.IsComposite() {
			*errs = append(*errs, &ConfigError{LocationID: l.ID, Err: fmt.Errorf("logical operator %s is not supported", l.CheckType)})
		}
		for _, child := range l.Conditions {
			validate(child, errs)
		}
	}
}
