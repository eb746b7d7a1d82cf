package service

import (
	"fmt"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
	"github.com/pesio-ai/be-plt-approvals/internal/repository"
)

var validOperators = map[string]struct{}{
	"eq": {}, "ne": {}, "gt": {}, "gte": {}, "lt": {}, "lte": {},
}

// EvaluateConditions is the default ConditionEvaluator. All conditions must
// hold; a condition referencing a metadata field that is absent fails
// closed. The reserved fields entity_type and entity_id match against the
// request's entity binding.
func EvaluateConditions(conditions []repository.Condition, entityType, entityID string, metadata map[string]any) (bool, error) {
	for _, c := range conditions {
		var value any
		switch c.Field {
		case "entity_type":
			value = entityType
		case "entity_id":
			value = entityID
		default:
			v, ok := metadata[c.Field]
			if !ok {
				return false, nil
			}
			value = v
		}

		ok, err := compare(value, c.Operator, c.Value)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func compare(value any, operator string, expected any) (bool, error) {
	lhs, lhsNum := asNumber(value)
	rhs, rhsNum := asNumber(expected)

	switch operator {
	case "eq":
		if lhsNum && rhsNum {
			return lhs == rhs, nil
		}
		return fmt.Sprint(value) == fmt.Sprint(expected), nil
	case "ne":
		if lhsNum && rhsNum {
			return lhs != rhs, nil
		}
		return fmt.Sprint(value) != fmt.Sprint(expected), nil
	case "gt", "gte", "lt", "lte":
		if !lhsNum || !rhsNum {
			return false, errors.Newf(errors.ErrCodeInvalidConfiguration,
				"condition operator %q requires numeric operands", operator)
		}
		switch operator {
		case "gt":
			return lhs > rhs, nil
		case "gte":
			return lhs >= rhs, nil
		case "lt":
			return lhs < rhs, nil
		default:
			return lhs <= rhs, nil
		}
	default:
		return false, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"unknown condition operator %q", operator)
	}
}

// asNumber coerces the numeric types JSON decoding can produce.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
