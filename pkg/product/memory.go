package product

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cf-platform-eng/tile-generator/pkg/failure"
)

var memoryExp = regexp.MustCompile(`^(\d+)\s*([a-z]*)$`)

// ParseMemory converts a CF manifest memory value to MiB. Integers are
// already MiB; strings must carry one of the m, mb, g or gb suffixes.
func ParseMemory(value any) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		match := memoryExp.FindStringSubmatch(strings.ToLower(strings.TrimSpace(v)))
		if match == nil {
			return 0, failure.New(failure.InvalidMemoryUnit, v, "memory must be a number followed by m, mb, g, or gb")
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, failure.Wrap(failure.InvalidMemoryUnit, v, err)
		}
		switch match[2] {
		case "m", "mb":
			return n, nil
		case "g", "gb":
			return n * 1024, nil
		}
		return 0, failure.New(failure.InvalidMemoryUnit, v, "memory must be a number followed by m, mb, g, or gb")
	}
	return 0, failure.New(failure.InvalidMemoryUnit, fmt.Sprint(value), "memory must be a number followed by m, mb, g, or gb")
}

// ValidateMemoryQuota defaults the org quota to twice the total memory and
// fails when a declared quota cannot hold every app plus a rolling update
// of the largest one.
func ValidateMemoryQuota(product *Product) error {
	if product.OrgQuota == 0 {
		product.OrgQuota = 2 * product.TotalMemory
	}
	if required := product.TotalMemory + product.MaxMemory; product.OrgQuota < required {
		return failure.New(failure.InsufficientMemoryQuota, product.Name,
			"org_quota %d is less than the %d MB required by the apps (total %d plus largest %d)",
			product.OrgQuota, required, product.TotalMemory, product.MaxMemory)
	}
	return nil
}
