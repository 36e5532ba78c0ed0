package phone

import (
	"fmt"
	"strings"

	"github.com/ttacon/libphonenumber"
	"go.uber.org/zap"

	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
	"github.com/acme/call-dispatch/pkg/logger"
)

// Normalize parses raw in the context of region and returns it in E.164 form.
func Normalize(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: phone number is required", apperrors.ErrValidation)
	}

	number, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("%w: parse phone number %q: %v", apperrors.ErrValidation, raw, err)
	}
	if !libphonenumber.IsValidNumber(number) {
		return "", fmt.Errorf("%w: invalid phone number %q", apperrors.ErrValidation, raw)
	}
	return libphonenumber.Format(number, libphonenumber.E164), nil
}

// NormalizeItems rewrites every parseable number to E.164. Numbers that do not
// parse are kept verbatim so the dispatcher records them as failed items.
func NormalizeItems(items []domain.WorkItem, region string, lg *logger.Logger) []domain.WorkItem {
	if lg == nil {
		lg = logger.Nop()
	}
	out := make([]domain.WorkItem, len(items))
	for i, item := range items {
		out[i] = item
		normalized, err := Normalize(item.PhoneNumber, region)
		if err != nil {
			lg.Warn("phone: keeping number as given", zap.Int("position", i), zap.String("phone", item.PhoneNumber), zap.Error(err))
			continue
		}
		out[i].PhoneNumber = normalized
	}
	return out
}
